package ingest

import "errors"

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrInvalidPDF  = errors.New("invalid pdf")
	ErrNoText      = errors.New("no extractable text")
)
