package resilience

import "sync"

// Registry owns the process's named circuit breakers. Breakers are
// created lazily on first use and live for the registry's lifetime.
// Constructing a registry per test (or per tenant) keeps instances
// isolated; there is no package-level default.
type Registry struct {
	defaults CircuitBreakerConfig

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers default to the given
// config unless overridden at Get time.
func NewRegistry(defaults CircuitBreakerConfig) *Registry {
	return &Registry{
		defaults: defaults,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it with the registry
// defaults on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	return r.GetWith(name, r.defaults)
}

// GetWith returns the breaker for name, creating it with the given
// config on first use. The config is ignored for an existing breaker.
func (r *Registry) GetWith(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb = NewCircuitBreaker(name, config)
	r.breakers[name] = cb
	return cb
}

// Names returns the names of all registered breakers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}

// Snapshot returns the health of every registered breaker.
func (r *Registry) Snapshot() map[string]Health {
	r.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.RUnlock()

	snap := make(map[string]Health, len(breakers))
	for _, cb := range breakers {
		snap[cb.Name()] = cb.Health()
	}
	return snap
}

// ResetAll forces every registered breaker back to closed state.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.RUnlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}
