package runs

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/dispatch/internal/pipeline"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrDuplicate = errors.New("run already exists")
	ErrInvalid   = errors.New("invalid run request")
)

// MapHTTPStatus maps run and pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return pipeline.MapHTTPStatus(err)
	}
}
