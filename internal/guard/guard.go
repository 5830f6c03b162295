// Package guard gates access to author-only surfaces on session state.
package guard

import (
	"blogclient/internal/session"
)

// Decision is what a gated surface should do right now.
type Decision int

const (
	// Pending means the session restore hasn't settled yet; show a neutral
	// placeholder instead of bouncing a user who may well be logged in.
	Pending Decision = iota
	// Redirect means anonymous: send the user to the login entry point.
	Redirect
	// Allow means authenticated: render the protected content.
	Allow
)

func (d Decision) String() string {
	switch d {
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return "pending"
	}
}

// stateSource is the slice of the session manager the guard reads through.
type stateSource interface {
	State() session.State
	Subscribe(fn func(session.State))
}

// Guard maps session state to access decisions and pushes a fresh decision
// to its watchers on every session transition.
type Guard struct {
	sessions    stateSource
	loginTarget string
}

func New(sessions stateSource, loginTarget string) *Guard {
	return &Guard{sessions: sessions, loginTarget: loginTarget}
}

// Check returns the decision for the current session state.
func (g *Guard) Check() Decision {
	return decide(g.sessions.State())
}

// LoginTarget is where a Redirect decision should send the user.
func (g *Guard) LoginTarget() string {
	return g.loginTarget
}

// Watch invokes fn with the current decision immediately and again after
// every session transition.
func (g *Guard) Watch(fn func(Decision)) {
	g.sessions.Subscribe(func(state session.State) {
		fn(decide(state))
	})
	fn(g.Check())
}

func decide(state session.State) Decision {
	switch state {
	case session.StateAuthenticated:
		return Allow
	case session.StateAnonymous:
		return Redirect
	default:
		return Pending
	}
}
