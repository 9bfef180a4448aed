// Package capability implements the Teleop bootstrap capability: a
// name-addressed router over lazily built, type-erased server
// capabilities, served to clients over a two-party multiplexed
// session (see session.go).
package capability

import (
	"context"
	"fmt"
	"sync"
)

// ServerCapability is the type-erased shape every registered service
// is adapted to. A concrete service (EchoServer, say) is wrapped by a
// small per-capability adapter into this interface, keeping Router
// itself free of any particular service's types.
type ServerCapability interface {
	Invoke(ctx context.Context, method string, args []byte) ([]byte, error)
}

// Factory builds one ServerCapability instance. It is invoked at most
// once per registered name, the first time that name is resolved.
type Factory func() ServerCapability

// ServiceUnknownError is returned by Router.Service for a name that
// was never registered. Its message always contains the exact phrase
// "service <name> not found", matching spec.md §4.D / §8.
type ServiceUnknownError struct {
	Name string
}

func (e *ServiceUnknownError) Error() string {
	return fmt.Sprintf("service %s not found", e.Name)
}

type cell struct {
	once    sync.Once
	factory Factory
	built   ServerCapability
}

func (c *cell) get() ServerCapability {
	c.once.Do(func() {
		c.built = c.factory()
	})
	return c.built
}

// Router is the Teleop bootstrap capability: an ordered-by-insertion
// map from service name to a lazily realized capability. Unlike
// spec.md §5's single-threaded-executor assumption, this module's
// session runtime hands each accepted connection its own goroutine
// (the teacher's own idiom — one worker goroutine per connection), so
// Router guards its map and each cell's realization with locks to keep
// "factory invoked exactly once" true under real concurrency.
type Router struct {
	mu       sync.RWMutex
	services map[string]*cell
	order    []string
}

// NewRouter returns an empty router. Register services with
// RegisterService before serving any connection: registration is not
// safe to interleave with concurrent Service calls.
func NewRouter() *Router {
	return &Router{services: make(map[string]*cell)}
}

// RegisterService inserts (or replaces) the lazy cell for name. The
// factory does not run until the first successful Service(name) call.
func (r *Router) RegisterService(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; !exists {
		r.order = append(r.order, name)
	}
	r.services[name] = &cell{factory: factory}
}

// Service resolves name to its capability, realizing it on first use.
// A name that was never registered fails with *ServiceUnknownError and
// does not affect the caller's session: only this one call fails.
func (r *Router) Service(name string) (ServerCapability, error) {
	r.mu.RLock()
	c, ok := r.services[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &ServiceUnknownError{Name: name}
	}
	return c.get(), nil
}

// Names returns the registered service names in registration order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
