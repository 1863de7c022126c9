package weather

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/dispatch/pkg/handlers"
	"github.com/JaimeStill/dispatch/pkg/routes"
)

// Source is the lookup surface the HTTP handler serves.
type Source interface {
	FetchCurrent(ctx context.Context, city string) (Snapshot, error)
	FetchForecast(ctx context.Context, city string, days int) (Forecast, error)
}

// Handler exposes weather lookups over HTTP.
type Handler struct {
	src    Source
	logger *slog.Logger
}

func NewHandler(src Source, logger *slog.Logger) *Handler {
	return &Handler{
		src:    src,
		logger: logger.With("handler", "weather"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/weather",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{city}", Handler: h.Current},
			{Method: "GET", Pattern: "/{city}/forecast", Handler: h.Forecast},
		},
	}
}

// Current returns the current conditions for the city path parameter.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	snap, err := h.src.FetchCurrent(r.Context(), r.PathValue("city"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, snap)
}

// Forecast returns the forecast for the city path parameter. The days query
// parameter defaults to 5.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	days := maxDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidDays)
			return
		}
		days = n
	}

	fc, err := h.src.FetchForecast(r.Context(), r.PathValue("city"), days)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, fc)
}
