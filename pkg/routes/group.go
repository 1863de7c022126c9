package routes

import (
	"iter"
	"net/http"
)

// Group nests routes and child groups under a shared path prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// All yields every route in g and its children keyed by its full mux pattern,
// "METHOD /prefix/pattern".
func (g Group) All() iter.Seq2[string, Route] {
	return func(yield func(string, Route) bool) {
		g.walk("", yield)
	}
}

func (g Group) walk(parent string, yield func(string, Route) bool) bool {
	prefix := parent + g.Prefix
	for _, rt := range g.Routes {
		if !yield(rt.Method+" "+prefix+rt.Pattern, rt) {
			return false
		}
	}
	for _, child := range g.Children {
		if !child.walk(prefix, yield) {
			return false
		}
	}
	return true
}

// Register adds every route of groups to mux. Each handler reports its
// pattern to middleware.Logger when one wraps mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		for pattern, rt := range g.All() {
			mux.HandleFunc(pattern, rt.serve)
		}
	}
}
