package ingest

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes one pipeline stage for one delivered message.
type Handler interface {
	Stage() Stage
	Run(ctx context.Context, msg JobMessage) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[Stage]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Stage]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	s := h.Stage()
	if s == "" {
		return fmt.Errorf("handler Stage() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[s]; exists {
		return fmt.Errorf("handler already registered for stage=%s", s)
	}
	r.handlers[s] = h
	return nil
}

func (r *Registry) Get(stage Stage) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[stage]
	return h, ok
}
