package skylight

import (
	"fmt"
	"sync"
)

// Registry maps lamp ids to their owned sessions. One registry per
// process; sessions are created at startup and torn down on shutdown
// or when a lamp is removed from configuration.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its endpoint id and starts it.
//
// Returns:
//   - error: ErrValidation if the id is already registered
func (r *Registry) Add(session *Session) error {
	id := session.Endpoint().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("%w: duplicate lamp id %q", ErrValidation, id)
	}
	r.sessions[id] = session
	session.Start()
	return nil
}

// Get returns the session for a lamp id.
//
// Returns:
//   - error: ErrUnknownLamp if no session exists for the id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLamp, id)
	}
	return session, nil
}

// List returns all registered sessions in unspecified order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Remove tears down and unregisters the session for a lamp id.
//
// Returns:
//   - error: ErrUnknownLamp if no session exists for the id
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	session, exists := r.sessions[id]
	if exists {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownLamp, id)
	}
	session.Close()
	return nil
}

// CloseAll tears down every session. The registry is empty afterwards.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
