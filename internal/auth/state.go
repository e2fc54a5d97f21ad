package auth

import "github.com/ashureev/soil-advisor/internal/domain"

// State is the session state. Exactly one of Anonymous, Loading,
// Authenticated or Errored.
type State interface {
	// Session projects the state onto the flag view consumed by renderers.
	Session() Session
	isState()
}

// Anonymous means no user is logged in.
type Anonymous struct{}

// Loading means a login, register or logout call is in flight.
type Loading struct{}

// Authenticated carries the logged-in user.
type Authenticated struct {
	User domain.UserProfile
}

// Errored means the last login or register failed. No user is logged in.
type Errored struct {
	Message string
}

func (Anonymous) isState()     {}
func (Loading) isState()       {}
func (Authenticated) isState() {}
func (Errored) isState()       {}

// Session is the loosely typed view of State.
type Session struct {
	User      *domain.UserProfile
	IsLoading bool
	Error     string
}

func (Anonymous) Session() Session { return Session{} }

func (Loading) Session() Session { return Session{IsLoading: true} }

func (a Authenticated) Session() Session {
	u := a.User
	return Session{User: &u}
}

func (e Errored) Session() Session { return Session{Error: e.Message} }
