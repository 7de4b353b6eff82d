package core

import "sync"

// Session is one live connection as seen by the relay core.
type Session struct {
	ID       string
	Identity string
	Commands chan *Command
	Events   chan *Event

	// rooms is the set of room names this session has joined.
	// Owned by the Registry; never touched outside the hub loop.
	rooms map[string]struct{}

	done chan struct{}
	once sync.Once
}

// NewSession constructs a session with initialized channels.
// identity is the IP-equivalent origin used for throttling.
func NewSession(id, identity string) *Session {
	return &Session{
		ID:       id,
		Identity: identity,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
		rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Close marks the session as terminated server-side. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed once the session has been terminated server-side. The
// transport watches it so that forced closes and network drops converge on
// the same teardown path.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
