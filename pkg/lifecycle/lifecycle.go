// Package lifecycle coordinates subsystem startup, readiness, and ordered
// shutdown for long-running processes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdownTimeout is returned when shutdown hooks outlive the deadline.
var ErrShutdownTimeout = errors.New("shutdown timed out")

// Checker reports whether a subsystem can serve traffic.
type Checker interface {
	Ready() bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func() bool

func (f CheckerFunc) Ready() bool { return f() }

// ShutdownHook releases a subsystem. The context carries the shutdown deadline.
type ShutdownHook func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownHook
}

// Coordinator runs startup hooks concurrently, tracks readiness of named
// subsystems, and runs shutdown hooks in reverse registration order.
type Coordinator struct {
	ctx     context.Context
	cancel  context.CancelFunc
	startup sync.WaitGroup
	started atomic.Bool

	mu     sync.Mutex
	hooks  []hook
	checks map[string]Checker
}

// New creates a Coordinator whose context is cancelled when Shutdown begins.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		checks: make(map[string]Checker),
	}
}

// Context is cancelled when Shutdown is called.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn in its own goroutine. WaitForStartup blocks on all of them.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// OnShutdown registers a named hook. Hooks run sequentially, last registered
// first, so a subsystem is released before the ones it was built on.
func (c *Coordinator) OnShutdown(name string, fn ShutdownHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook{name: name, fn: fn})
}

// Register adds a named readiness check consulted by Ready and Status.
func (c *Coordinator) Register(name string, chk Checker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = chk
}

// WaitForStartup blocks until every startup hook has returned.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	c.started.Store(true)
}

// Ready reports true once startup has finished and every registered check passes.
func (c *Coordinator) Ready() bool {
	if !c.started.Load() {
		return false
	}
	for _, ok := range c.Status() {
		if !ok {
			return false
		}
	}
	return true
}

// Status returns the current result of each registered check.
func (c *Coordinator) Status() map[string]bool {
	c.mu.Lock()
	checks := maps.Clone(c.checks)
	c.mu.Unlock()

	status := make(map[string]bool, len(checks))
	for name, chk := range checks {
		status[name] = chk.Ready()
	}
	return status
}

// Shutdown cancels the coordinator context and runs shutdown hooks within
// timeout. Hook errors are joined; exceeding the deadline yields
// ErrShutdownTimeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	c.mu.Lock()
	hooks := slices.Clone(c.hooks)
	c.mu.Unlock()
	slices.Reverse(hooks)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, h := range hooks {
			if err := h.fn(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %v", ErrShutdownTimeout, timeout)
	}
}
