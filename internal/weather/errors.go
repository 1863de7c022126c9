package weather

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("city not found")
	ErrMissingKey      = errors.New("weather api key not configured")
	ErrMissingCity     = errors.New("city required")
	ErrInvalidDays     = errors.New("days must be a positive integer")
	ErrUpstream        = errors.New("weather service error")
	ErrInvalidResponse = errors.New("invalid weather response")
	ErrInvalidConfig   = errors.New("invalid weather config")
)

// MapHTTPStatus maps weather errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingCity), errors.Is(err, ErrInvalidDays):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrInvalidResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
