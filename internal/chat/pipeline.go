// Package chat implements the assistant conversation loop.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/soil-advisor/internal/apiclient"
	"github.com/ashureev/soil-advisor/internal/domain"
	"github.com/google/uuid"
)

const (
	// Greeting is always the first transcript entry.
	Greeting = "Hello! I'm your soil fertility assistant. Ask me anything about soil health, " +
		"fertilizers, crop recommendations, or farming best practices."

	// FallbackReply is appended in place of a reply when a send fails.
	FallbackReply = "Sorry, I encountered an error. Please try again."
)

// API is the subset of the API client used by the pipeline.
type API interface {
	Post(ctx context.Context, path string, body any, authRequired bool, out any) error
	Get(ctx context.Context, path string, authRequired bool, out any) error
}

// TranscriptLog receives every transcript append.
type TranscriptLog interface {
	Append(msg domain.ChatMessage)
}

// Snapshot is a copy of the pipeline state for rendering.
type Snapshot struct {
	Messages  []domain.ChatMessage
	Pending   string
	Typing    bool
	Listening bool
	LastError string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithTranscriptLog records every appended message.
func WithTranscriptLog(log TranscriptLog) Option {
	return func(p *Pipeline) { p.transcriptLog = log }
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Pipeline holds one conversation. The transcript is append-only and starts
// with the greeting. Sends are not serialized: user messages append in call
// order, replies in completion order.
type Pipeline struct {
	api           API
	logger        *slog.Logger
	now           func() time.Time
	transcriptLog TranscriptLog

	mu       sync.Mutex
	messages []domain.ChatMessage
	pending  string
	inFlight int
	lastErr  string
	listen   *listenSession
	watchers map[int]func(Snapshot)
	nextID   int
}

// New creates a pipeline seeded with the greeting.
func New(api API, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:      api,
		now:      time.Now,
		watchers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.messages = []domain.ChatMessage{p.newMessage(Greeting, false)}
	if p.transcriptLog != nil {
		p.transcriptLog.Append(p.messages[0])
	}
	return p
}

// Send submits text as a user turn. Blank input is ignored without a network
// call. The user message is appended and the pending input cleared before the
// request is issued; the reply, or FallbackReply on failure, is appended when
// it completes. The returned error is also recorded as LastError.
func (p *Pipeline) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	p.update(func() {
		p.appendLocked(p.newMessage(text, true))
		p.pending = ""
		p.inFlight++
		p.lastErr = ""
	})
	defer p.update(func() { p.inFlight-- })

	var resp chatResponse
	err := p.api.Post(ctx, "/api/chat/message", chatRequest{Message: text}, true, &resp)
	if err != nil {
		p.logger.Warn("chat message failed", "error", err)
		p.update(func() {
			p.lastErr = apiclient.Message(err)
			p.appendLocked(p.newMessage(FallbackReply, false))
		})
		return err
	}

	p.update(func() {
		p.appendLocked(p.newMessage(resp.Response, false))
	})
	return nil
}

// SendPending sends the current pending input.
func (p *Pipeline) SendPending(ctx context.Context) error {
	return p.Send(ctx, p.Pending())
}

// SetPending overwrites the pending input, as typed by the user.
func (p *Pipeline) SetPending(text string) {
	p.update(func() { p.pending = text })
}

// Pending returns the pending input.
func (p *Pipeline) Pending() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Typing reports whether any send is awaiting its reply.
func (p *Pipeline) Typing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight > 0
}

// LastError returns the message of the most recent failed send, cleared when
// the next send starts.
func (p *Pipeline) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Messages returns a copy of the transcript.
func (p *Pipeline) Messages() []domain.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ChatMessage(nil), p.messages...)
}

// Snapshot returns a copy of the whole state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Watch registers fn to be called with a snapshot after every change.
// The returned function unregisters it.
func (p *Pipeline) Watch(fn func(Snapshot)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers, id)
	}
}

func (p *Pipeline) snapshotLocked() Snapshot {
	return Snapshot{
		Messages:  append([]domain.ChatMessage(nil), p.messages...),
		Pending:   p.pending,
		Typing:    p.inFlight > 0,
		Listening: p.listen != nil,
		LastError: p.lastErr,
	}
}

// update applies fn under the lock and notifies watchers afterwards.
func (p *Pipeline) update(fn func()) {
	p.mu.Lock()
	fn()
	snap := p.snapshotLocked()
	watchers := make([]func(Snapshot), 0, len(p.watchers))
	for _, w := range p.watchers {
		watchers = append(watchers, w)
	}
	p.mu.Unlock()

	for _, w := range watchers {
		w(snap)
	}
}

func (p *Pipeline) appendLocked(msg domain.ChatMessage) {
	p.messages = append(p.messages, msg)
	if p.transcriptLog != nil {
		p.transcriptLog.Append(msg)
	}
}

func (p *Pipeline) newMessage(text string, isUser bool) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		IsUser:    isUser,
		Timestamp: p.now(),
	}
}
