// Package routes declares HTTP routes as nested groups and registers them on
// a ServeMux.
package routes

import (
	"net/http"

	"github.com/JaimeStill/dispatch/pkg/middleware"
)

// Route binds a method and a path pattern, relative to its group, to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (rt Route) serve(w http.ResponseWriter, r *http.Request) {
	middleware.MarkRoute(r)
	rt.Handler(w, r)
}
