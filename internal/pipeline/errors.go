package pipeline

import (
	"errors"
	"net/http"
)

var (
	ErrClassifyFailed = errors.New("classification failed")
	ErrGraphFailed    = errors.New("pipeline graph failed")
	ErrEmptyQuery     = errors.New("query is empty")
)

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrClassifyFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
