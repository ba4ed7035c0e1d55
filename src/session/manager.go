package session

import "sync"

// Manager tracks live sessions by id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	defaults Options
}

// NewManager returns a manager that starts sessions from defaults.
func NewManager(defaults Options) *Manager {
	return &Manager{sessions: make(map[string]*Session), defaults: defaults}
}

// Start creates and registers a session. A nil opts uses the manager
// defaults.
func (m *Manager) Start(opts *Options) *Session {
	o := m.defaults
	if opts != nil {
		o = *opts
	}
	s := New(o)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// End discards the session and all of its state. It reports whether the
// session existed.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.ClearCatalog()
		s.Clear()
	}
	return ok
}
