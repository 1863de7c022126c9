package runs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/dispatch/pkg/query"
	"github.com/JaimeStill/dispatch/pkg/repository"
)

const returning = `RETURNING id, query, category, entity, rationale, response, sources, success, handler_used, duration_ms, error, created_at`

var projection = query.
	NewProjectionMap("public", "runs", "r").
	Project("id", "ID").
	Project("query", "Query").
	Project("category", "Category").
	Project("entity", "Entity").
	Project("rationale", "Rationale").
	Project("response", "Response").
	Project("sources", "Sources").
	Project("success", "Success").
	Project("handler_used", "HandlerUsed").
	Project("duration_ms", "DurationMs").
	Project("error", "Error").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows run queries. Since bounds created_at from below; the rest match exactly.
type Filters struct {
	Category    *string    `json:"category,omitempty"`
	HandlerUsed *string    `json:"handler_used,omitempty"`
	Success     *bool      `json:"success,omitempty"`
	Since       *time.Time `json:"since,omitempty"`
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Category", f.Category).
		WhereEquals("HandlerUsed", f.HandlerUsed).
		WhereEquals("Success", f.Success).
		WhereSince("CreatedAt", f.Since)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}
	if h := values.Get("handler_used"); h != "" {
		f.HandlerUsed = &h
	}
	if s := values.Get("success"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.Success = &v
		}
	}
	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	return f
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	var sourcesRaw []byte

	err := s.Scan(
		&r.ID,
		&r.Query,
		&r.Category,
		&r.Entity,
		&r.Rationale,
		&r.Response,
		&sourcesRaw,
		&r.Success,
		&r.HandlerUsed,
		&r.DurationMs,
		&r.Error,
		&r.CreatedAt,
	)
	if err != nil {
		return r, err
	}

	if len(sourcesRaw) > 0 {
		if err := json.Unmarshal(sourcesRaw, &r.Sources); err != nil {
			return r, fmt.Errorf("unmarshal sources: %w", err)
		}
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}

	return r, nil
}
