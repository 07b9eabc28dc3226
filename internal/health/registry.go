// Package health tracks the engine's external dependencies for readiness
// checks.
package health

import (
	"context"
	"sync"
)

// Checker reports whether one dependency is reachable
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface
type CheckerFunc func(ctx context.Context) error

// CheckHealth calls the function
func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// Registry manages named health checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker to the registry
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// CheckAll runs every registered checker and returns per-name results
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error, len(r.checkers))
	for name, checker := range r.checkers {
		results[name] = checker.CheckHealth(ctx)
	}
	return results
}
