// Package middleware holds the HTTP middleware stack applied to dispatch
// modules.
package middleware

import (
	"net/http"
	"slices"
)

// Func wraps a handler.
type Func func(http.Handler) http.Handler

// Stack is an ordered middleware list. The first entry is the outermost.
type Stack []Func

// Use appends mw to the stack.
func (s *Stack) Use(mw Func) {
	*s = append(*s, mw)
}

// Apply wraps h so a request passes through the stack in order before reaching h.
func (s Stack) Apply(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(s) {
		h = mw(h)
	}
	return h
}
