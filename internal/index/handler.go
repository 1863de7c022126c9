package index

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/dispatch/pkg/handlers"
	"github.com/JaimeStill/dispatch/pkg/routes"
)

// Handler exposes index statistics and reset over HTTP.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("handler", "index"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/index",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/stats", Handler: h.Stats},
			{Method: "DELETE", Pattern: "", Handler: h.Reset},
		},
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Reset removes every passage. Registered documents keep their rows.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	h.logger.InfoContext(r.Context(), "index reset")
	w.WriteHeader(http.StatusNoContent)
}
