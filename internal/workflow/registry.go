package workflow

import (
	"sync"
)

// Registry tracks the live session controllers of this gateway instance.
// Sessions are in-memory only; a reload starts from scratch.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Controller),
	}
}

func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	r.sessions[c.ID] = c
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	return c, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
