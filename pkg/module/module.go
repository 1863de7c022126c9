// Package module mounts self-contained HTTP handlers under single-segment
// path prefixes, each with its own middleware stack.
package module

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JaimeStill/dispatch/pkg/middleware"
)

// ErrInvalidPrefix is returned for prefixes that are not a single "/segment".
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module serves requests under its prefix. The prefix is stripped before the
// request reaches the inner handler, so "/api/runs" arrives as "/runs".
type Module struct {
	prefix  string
	inner   http.Handler
	stack   middleware.Stack
	once    sync.Once
	handler http.Handler
}

// New creates a Module for prefix, for example "/api".
func New(prefix string, inner http.Handler, mws ...middleware.Func) (*Module, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Module{prefix: prefix, inner: inner, stack: mws}, nil
}

func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends mw to the module's stack. It has no effect once the module has
// served its first request.
func (m *Module) Use(mw middleware.Func) {
	m.stack.Use(mw)
}

func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.once.Do(func() { m.handler = m.stack.Apply(m.inner) })
	m.handler.ServeHTTP(w, strip(r, m.prefix))
}

func strip(r *http.Request, prefix string) *http.Request {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path == "" {
		path = "/"
	}

	out := r.Clone(r.Context())
	out.URL = &url.URL{}
	*out.URL = *r.URL
	out.URL.Path = path
	out.URL.RawPath = ""
	return out
}

func validatePrefix(prefix string) error {
	rest, ok := strings.CutPrefix(prefix, "/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return nil
}
