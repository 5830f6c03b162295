// Package session tracks whether the client is authenticated. It owns the
// in-memory session derived from the stored access token and is the single
// writer of the token store: login establishes, logout and 401 responses
// terminate, and startup restores whatever survived the last run.
package session

import (
	"log"
	"sync"
	"time"

	"blogclient/internal/tokenstore"
)

// State is the lifecycle phase of the client session.
type State int

const (
	// StateUnknown means Restore has not run yet.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the identity of the logged-in user, derived from the decoded
// access token plus the cached user record.
type Session struct {
	UserID    int64
	Email     string
	ExpiresAt time.Time
}

// Manager is the session state machine. It starts in StateUnknown, moves to
// Anonymous or Authenticated when Restore runs, and transitions between the
// two on Establish/Terminate. Every transition notifies subscribers.
type Manager struct {
	store *tokenstore.Store
	now   func() time.Time

	mu        sync.Mutex
	state     State
	current   Session
	restored  bool
	listeners []func(State)
}

func NewManager(store *tokenstore.Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		state: StateUnknown,
	}
}

// Subscribe registers a callback invoked after every state transition.
// Callbacks run outside the manager's lock and may call back into it.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a live session exists.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Current returns the active session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.state == StateAuthenticated
}

// Restore rebuilds the session from the token store. It runs the actual
// restore once per process; later calls return the already-settled state.
// A missing, malformed, or expired token degrades to Anonymous and wipes
// the store — never an error, per the silent-restore contract.
func (m *Manager) Restore() State {
	m.mu.Lock()
	if m.restored {
		st := m.state
		m.mu.Unlock()
		return st
	}
	m.restored = true
	m.mu.Unlock()

	tokens, user, ok, err := m.store.Load()
	if err != nil || !ok {
		if err != nil {
			log.Printf("session: discarding unreadable credentials: %v", err)
			_ = m.store.Clear()
		}
		return m.setState(StateAnonymous, Session{})
	}

	claims, err := DecodeAccessToken(tokens.AccessToken)
	if err != nil {
		log.Printf("session: discarding undecodable access token: %v", err)
		_ = m.store.Clear()
		return m.setState(StateAnonymous, Session{})
	}

	expiresAt := time.Time{}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if !expiresAt.After(m.now()) {
		_ = m.store.Clear()
		return m.setState(StateAnonymous, Session{})
	}

	sess := Session{
		UserID:    claims.UserID,
		Email:     claims.Identity(),
		ExpiresAt: expiresAt,
	}
	if sess.Email == "" {
		sess.Email = user.Email
	}
	return m.setState(StateAuthenticated, sess)
}

// Establish persists the credentials and flips the session to Authenticated.
// The tokens are taken on trust; Auth Flow has already decoded them.
func (m *Manager) Establish(user tokenstore.StoredUser, tokens tokenstore.TokenPair) error {
	if err := m.store.Save(tokens, user); err != nil {
		return err
	}

	sess := Session{UserID: user.ID, Email: user.Email}
	if claims, err := DecodeAccessToken(tokens.AccessToken); err == nil && claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	m.restored = true
	m.mu.Unlock()
	m.setState(StateAuthenticated, sess)
	return nil
}

// Terminate clears the store and the in-memory session. It is idempotent:
// terminating an anonymous session is a no-op and notifies nobody, so any
// number of racing 401 handlers produce at most one transition.
func (m *Manager) Terminate() {
	_ = m.store.Clear()
	m.mu.Lock()
	m.restored = true
	m.mu.Unlock()
	m.setState(StateAnonymous, Session{})
}

func (m *Manager) setState(next State, sess Session) State {
	m.mu.Lock()
	changed := m.state != next
	m.state = next
	m.current = sess
	var listeners []func(State)
	if changed {
		listeners = append(listeners, m.listeners...)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}
