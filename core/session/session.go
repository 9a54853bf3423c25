package session

import (
	"sync"
	"time"
)

// State names the step of a multi-step editor flow a user is in.
type State string

const (
	// Waiting is the implicit state of users with no open session.
	Waiting State = "waiting"

	CreatingPage   State = "creating_page"
	EditingPage    State = "editing_page"
	CreatingButton State = "creating_button"
	EditingButton  State = "editing_button"
	CreatingAction State = "creating_action"
	EditingAction  State = "editing_action"
	EditingWelcome State = "editing_welcome"
	AddingAdmin    State = "adding_admin"
)

// DefaultTimeout is how long an idle session survives before the sweep drops it.
const DefaultTimeout = 30 * time.Minute

// Context carries the entity a flow is operating on. Only the field
// matching the state may be set; a mismatch invalidates the session.
type Context struct {
	PageID   string
	ButtonID string
	ActionID string
}

// Session is one user's open editor flow.
type Session struct {
	State     State
	EnteredAt time.Time
	Context   Context
}

// Manager owns per-user sessions. Sessions are volatile: they live in
// memory only and disappear on restart. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Begin opens a session for the user, replacing any prior one.
func (m *Manager) Begin(userID int64, state State, ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = Session{
		State:     state,
		EnteredAt: m.now(),
		Context:   ctx,
	}
}

// Current returns the user's state, Waiting when no session exists or the
// stored context does not match the declared state.
func (m *Manager) Current(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Waiting
	}
	if !contextMatches(s.State, s.Context) {
		delete(m.sessions, userID)
		return Waiting
	}
	return s.State
}

// Get returns the user's session when one exists and is internally consistent.
func (m *Manager) Get(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if !contextMatches(s.State, s.Context) {
		delete(m.sessions, userID)
		return Session{}, false
	}
	return s, true
}

// IsValid reports whether the user has an open session in exactly the
// expected state. Used before accepting free text as a flow continuation.
func (m *Manager) IsValid(userID int64, expected State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return false
	}
	if s.State != expected {
		return false
	}
	if !contextMatches(s.State, s.Context) {
		delete(m.sessions, userID)
		return false
	}
	return true
}

// Clear drops the user's session if any.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// SweepExpired removes sessions idle longer than timeout and returns the
// ids of affected users. Called lazily on inbound text, not on a timer.
func (m *Manager) SweepExpired(now time.Time, timeout time.Duration) []int64 {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []int64
	for userID, s := range m.sessions {
		if now.Sub(s.EnteredAt) > timeout {
			delete(m.sessions, userID)
			expired = append(expired, userID)
		}
	}
	return expired
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// contextMatches checks that the session context carries exactly what the
// state needs: a page for page-scoped flows, a button or action for their
// edit flows, nothing extra elsewhere.
func contextMatches(state State, ctx Context) bool {
	switch state {
	case CreatingButton:
		return ctx.PageID != "" && ctx.ButtonID == "" && ctx.ActionID == ""
	case EditingPage:
		return ctx.PageID != "" && ctx.ButtonID == "" && ctx.ActionID == ""
	case EditingButton:
		return ctx.ButtonID != "" && ctx.ActionID == ""
	case EditingAction:
		return ctx.ActionID != "" && ctx.ButtonID == ""
	case CreatingPage, CreatingAction, EditingWelcome, AddingAdmin:
		return ctx.PageID == "" && ctx.ButtonID == "" && ctx.ActionID == ""
	default:
		return false
	}
}
