// Package documents is the registry of uploaded files. Each upload keeps its
// raw bytes in blob storage, a row in the documents table, and its
// passages in the document index.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Indexing status of a document.
const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

// Document is a registered upload and the outcome of indexing it.
type Document struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	PageCount    *int      `json:"page_count"`
	PassageCount int       `json:"passage_count"`
	StorageKey   string    `json:"storage_key"`
	Status       string    `json:"status"`
	Error        *string   `json:"error,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCommand carries an uploaded file. ContentType may be empty, in which
// case the kind is detected from the filename.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
}
