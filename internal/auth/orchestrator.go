// Package auth drives login, register and logout and exposes the session state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/soil-advisor/internal/apiclient"
	"github.com/ashureev/soil-advisor/internal/domain"
)

// ErrBusy is returned when a transition is requested while another is in flight.
var ErrBusy = errors.New("auth: another login, register or logout is in progress")

// API is the subset of the API client used by the orchestrator.
type API interface {
	Post(ctx context.Context, path string, body any, authRequired bool, out any) error
	Get(ctx context.Context, path string, authRequired bool, out any) error
}

// Credentials is the credential store.
type Credentials interface {
	Get(ctx context.Context) (domain.Credential, error)
	Set(ctx context.Context, token string, user domain.UserProfile) error
	Clear(ctx context.Context) error
}

type authResponse struct {
	AccessToken string             `json:"access_token"`
	User        domain.UserProfile `json:"user"`
}

// Orchestrator owns the single live session state.
type Orchestrator struct {
	api    API
	creds  Credentials
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64 // bumped on every state change
	watchers map[int]func(State)
	nextID   int

	// commitMu orders credential writes with the state change they belong to.
	commitMu sync.Mutex
}

// New creates an orchestrator in the Anonymous state. Call Init to restore
// a cached session.
func New(api API, creds Credentials, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		api:      api,
		creds:    creds,
		logger:   logger,
		state:    Anonymous{},
		watchers: make(map[int]func(State)),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the current flag view.
func (o *Orchestrator) Session() Session {
	return o.State().Session()
}

// Watch registers fn to be called after every transition. The returned
// function unregisters it.
func (o *Orchestrator) Watch(fn func(State)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.watchers[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.watchers, id)
	}
}

// Init restores the session from the credential store without a network call.
// A cached but revoked token is only discovered on the next authenticated call.
func (o *Orchestrator) Init(ctx context.Context) error {
	cred, err := o.creds.Get(ctx)
	if err != nil {
		o.set(Anonymous{})
		return fmt.Errorf("read credential: %w", err)
	}
	if cred.IsEmpty() || cred.User == nil {
		o.set(Anonymous{})
		return nil
	}
	o.set(Authenticated{User: *cred.User})
	return nil
}

// Login authenticates with email and password.
func (o *Orchestrator) Login(ctx context.Context, email, password string) error {
	return o.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and logs in.
func (o *Orchestrator) Register(ctx context.Context, email, password, name string) error {
	return o.authenticate(ctx, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
}

func (o *Orchestrator) authenticate(ctx context.Context, path string, body map[string]string) error {
	if _, err := o.begin(); err != nil {
		return err
	}

	var resp authResponse
	if err := o.api.Post(ctx, path, body, false, &resp); err != nil {
		o.fail(ctx, apiclient.Message(err))
		return err
	}
	if resp.AccessToken == "" {
		err := &apiclient.APIError{Message: "Missing access token in response"}
		o.fail(ctx, err.Message)
		return err
	}
	o.commitMu.Lock()
	err := o.creds.Set(ctx, resp.AccessToken, resp.User)
	if err == nil {
		o.set(Authenticated{User: resp.User})
	}
	o.commitMu.Unlock()
	if err != nil {
		o.fail(ctx, "Failed to save session")
		return fmt.Errorf("save credential: %w", err)
	}

	o.logger.Info("user authenticated", "user_id", resp.User.ID.String(), "path", path)
	return nil
}

// fail enters Errored and makes sure no stale credential outlives the session.
func (o *Orchestrator) fail(ctx context.Context, message string) {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	if err := o.creds.Clear(ctx); err != nil {
		o.logger.Warn("failed to clear credential after auth failure", "error", err)
	}
	o.set(Errored{Message: message})
}

// Logout ends the session. The network call is best effort: local state is
// always cleared and the orchestrator always ends Anonymous.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if _, err := o.begin(); err != nil {
		return err
	}

	if err := o.api.Post(ctx, "/api/auth/logout", nil, true, nil); err != nil {
		o.logger.Warn("logout request failed, clearing local session anyway", "error", err)
	}
	return o.clearLocal(ctx)
}

// ForceLogout clears the session without contacting the server. It is used
// when an authenticated call reveals the cached token was revoked.
func (o *Orchestrator) ForceLogout(ctx context.Context) {
	o.logger.Info("session rejected by server, logging out")
	if err := o.clearLocal(ctx); err != nil {
		o.logger.Warn("failed to clear credential on forced logout", "error", err)
	}
}

func (o *Orchestrator) clearLocal(ctx context.Context) error {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	err := o.creds.Clear(ctx)
	o.set(Anonymous{})
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Refresh validates the cached token against the server and updates the
// cached profile. It is a transition like Login and returns ErrBusy while
// another one is in flight. A 401 forces a logout through the API client hook.
// If the session was replaced while the request was pending (for example by
// ForceLogout), the result is discarded.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	cred, err := o.creds.Get(ctx)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if cred.IsEmpty() || cred.User == nil {
		return nil
	}
	gen, err := o.begin()
	if err != nil {
		return err
	}

	var resp struct {
		User domain.UserProfile `json:"user"`
	}
	reqErr := o.api.Get(ctx, "/api/auth/user", true, &resp)

	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	if !o.current(gen) {
		o.logger.Debug("session changed during refresh, discarding result")
		return reqErr
	}
	if reqErr != nil {
		o.set(Authenticated{User: *cred.User})
		return reqErr
	}
	if err := o.creds.Set(ctx, cred.Token, resp.User); err != nil {
		o.set(Authenticated{User: *cred.User})
		return fmt.Errorf("save credential: %w", err)
	}
	o.set(Authenticated{User: resp.User})
	return nil
}

// current reports whether no state change happened since gen was taken.
func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen == gen
}

// begin enters Loading, or returns ErrBusy if already loading. It returns the
// generation of the Loading state.
func (o *Orchestrator) begin() (uint64, error) {
	o.mu.Lock()
	if _, loading := o.state.(Loading); loading {
		o.mu.Unlock()
		return 0, ErrBusy
	}
	o.state = Loading{}
	o.gen++
	gen := o.gen
	watchers := o.snapshotWatchers()
	o.mu.Unlock()

	notify(watchers, Loading{})
	return gen, nil
}

func (o *Orchestrator) set(s State) {
	o.mu.Lock()
	o.state = s
	o.gen++
	watchers := o.snapshotWatchers()
	o.mu.Unlock()

	notify(watchers, s)
}

func (o *Orchestrator) snapshotWatchers() []func(State) {
	out := make([]func(State), 0, len(o.watchers))
	for _, fn := range o.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(State), s State) {
	for _, fn := range watchers {
		fn(s)
	}
}
