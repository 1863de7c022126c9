package index_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/dispatch/internal/index"
)

func TestHandler(t *testing.T) {
	store := index.NewMemory()
	_, err := store.Index(context.Background(), []index.Passage{
		{Content: "Quarterly revenue grew.", Source: "q3.pdf", Page: "1"},
		{Content: "Expenses were flat.", Source: "q3.pdf", Page: "2"},
		{Content: "Hiring paused.", Source: "memo.txt"},
	})
	require.NoError(t, err)

	h := index.NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/index/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats index.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, index.Stats{Backend: "memory", Passages: 3, Sources: 2}, stats)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/index", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	after, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, after.Passages)
}
