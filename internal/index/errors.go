package index

import "errors"

var (
	ErrInvalidBackend = errors.New("invalid index backend")
	ErrClosed         = errors.New("index closed")
	ErrEmptyQuery     = errors.New("empty query")
)
