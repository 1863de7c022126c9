package documents

import (
	"net/url"

	"github.com/JaimeStill/dispatch/pkg/query"
	"github.com/JaimeStill/dispatch/pkg/repository"
)

const returning = `RETURNING id, filename, content_type, size_bytes, page_count, passage_count, storage_key, status, error, uploaded_at, updated_at`

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("passage_count", "PassageCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("error", "Error").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters narrows document queries. Status and ContentType match exactly;
// Filename is a case-insensitive contains match.
type Filters struct {
	Status      *string `json:"status,omitempty"`
	Filename    *string `json:"filename,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Filename", f.Filename).
		WhereEquals("ContentType", f.ContentType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}
	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.PassageCount,
		&d.StorageKey,
		&d.Status,
		&d.Error,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
