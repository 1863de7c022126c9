package pipeline

import (
	"net/http"

	"github.com/JaimeStill/dispatch/pkg/routes"
)

// Handler exposes the run graph description.
type Handler struct {
	p *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{p: p}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pipeline",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/diagram", Handler: h.Diagram},
		},
	}
}

// Diagram writes the mermaid flowchart as plain text.
func (h *Handler) Diagram(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.p.Diagram()))
}
