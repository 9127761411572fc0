package memory

import (
	"context"
	"sync"
)

// Roster is an in-memory implementation of app.Roster.
type Roster struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{}
}

func NewRoster() *Roster {
	return &Roster{
		sessions: make(map[string]map[string]struct{}),
	}
}

func (r *Roster) Attach(_ context.Context, code, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.sessions[code]
	if !ok {
		conns = make(map[string]struct{})
		r.sessions[code] = conns
	}
	conns[connID] = struct{}{}
	return nil
}

// Detach removes the connection and drops the session entry once it is empty.
func (r *Roster) Detach(_ context.Context, code, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.sessions[code]
	if !ok {
		return nil
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.sessions, code)
	}
	return nil
}

func (r *Roster) Count(_ context.Context, code string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[code]), nil
}
