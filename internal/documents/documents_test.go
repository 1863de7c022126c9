package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/documents"
	"github.com/JaimeStill/dispatch/internal/ingest"
	"github.com/JaimeStill/dispatch/pkg/pagination"
	"github.com/JaimeStill/dispatch/pkg/storage"
)

type mockSystem struct {
	listFn   func(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error)
	findFn   func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	createFn func(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	downFn   func(ctx context.Context, id uuid.UUID) (*documents.Document, io.ReadCloser, error)
}

func (m *mockSystem) Handler(maxUploadSize int64) *documents.Handler {
	return newTestHandler(m, maxUploadSize)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Download(ctx context.Context, id uuid.UUID) (*documents.Document, io.ReadCloser, error) {
	return m.downFn(ctx, id)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func newTestHandler(sys documents.System, maxUploadSize int64) *documents.Handler {
	return documents.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		maxUploadSize,
	)
}

func setupMux(h *documents.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}
	return mux
}

func ptr[T any](v T) *T { return &v }

func sampleDoc() documents.Document {
	return documents.Document{
		ID:           uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Filename:     "handbook.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    2048,
		PageCount:    ptr(3),
		PassageCount: 7,
		StorageKey:   "documents/550e8400-e29b-41d4-a716-446655440000/handbook.pdf",
		Status:       documents.StatusIndexed,
		UploadedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 2, 9, 0, 1, 0, time.UTC),
	}
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	header["Content-Type"] = []string{contentType}

	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"file too large", documents.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid file", documents.ErrInvalidFile, http.StatusBadRequest},
		{"unsupported kind", fmt.Errorf("%w: a.exe", ingest.ErrUnsupported), http.StatusUnsupportedMediaType},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find: %w", documents.ErrNotFound), http.StatusNotFound},
		{"missing blob", fmt.Errorf("download blob: %w", storage.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documents.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := documents.FiltersFromQuery(url.Values{
		"status":       {"failed"},
		"filename":     {"hand"},
		"content_type": {"text/plain"},
	})

	if f.Status == nil || *f.Status != "failed" {
		t.Errorf("Status = %v, want failed", f.Status)
	}
	if f.Filename == nil || *f.Filename != "hand" {
		t.Errorf("Filename = %v, want hand", f.Filename)
	}
	if f.ContentType == nil || *f.ContentType != "text/plain" {
		t.Errorf("ContentType = %v, want text/plain", f.ContentType)
	}

	empty := documents.FiltersFromQuery(url.Values{})
	if empty.Status != nil || empty.Filename != nil || empty.ContentType != nil {
		t.Errorf("empty query produced filters: %+v", empty)
	}
}

func TestHandlerList(t *testing.T) {
	doc := sampleDoc()
	var captured documents.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f documents.Filters) (*pagination.PageResult[documents.Document], error) {
			captured = f
			result := pagination.NewPageResult([]documents.Document{doc}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(sys.Handler(1 << 20))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/documents?status=indexed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[documents.Document]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || len(result.Data) != 1 || result.Data[0].PassageCount != 7 {
		t.Errorf("result = %+v", result)
	}
	if captured.Status == nil || *captured.Status != documents.StatusIndexed {
		t.Errorf("status filter = %v, want indexed", captured.Status)
	}
}

func TestHandlerFind(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*documents.Document, error) {
			if id != doc.ID {
				return nil, documents.ErrNotFound
			}
			return &doc, nil
		},
	}
	mux := setupMux(sys.Handler(1 << 20))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/documents/" + doc.ID.String(), http.StatusOK},
		{"invalid uuid", "/documents/not-a-uuid", http.StatusBadRequest},
		{"not found", "/documents/" + uuid.New().String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerSearch(t *testing.T) {
	var capturedPage pagination.PageRequest
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, _ documents.Filters) (*pagination.PageResult[documents.Document], error) {
			capturedPage = page
			result := pagination.NewPageResult([]documents.Document{}, 0, page.Page, page.PageSize)
			return &result, nil
		},
	}
	mux := setupMux(sys.Handler(1 << 20))

	t.Run("normalizes pagination", func(t *testing.T) {
		body, _ := json.Marshal(documents.SearchRequest{
			PageRequest: pagination.PageRequest{Page: 0, PageSize: 500},
		})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents/search", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedPage.Page != 1 {
			t.Errorf("page = %d, want 1", capturedPage.Page)
		}
		if capturedPage.PageSize != 100 {
			t.Errorf("page size = %d, want 100", capturedPage.PageSize)
		}
	})

	t.Run("invalid json returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents/search", bytes.NewReader([]byte("not json"))))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerUpload(t *testing.T) {
	t.Run("creates document", func(t *testing.T) {
		var captured documents.CreateCommand
		sys := &mockSystem{
			createFn: func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
				captured = cmd
				doc := sampleDoc()
				doc.Filename = cmd.Filename
				doc.ContentType = cmd.ContentType
				return &doc, nil
			},
		}
		mux := setupMux(sys.Handler(1 << 20))

		body, ct := multipartBody(t, "notes.md", "text/markdown", []byte("# Notes\n\nQuarterly goals."))
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if captured.Filename != "notes.md" {
			t.Errorf("filename = %q, want notes.md", captured.Filename)
		}
		if captured.ContentType != "text/markdown" {
			t.Errorf("content type = %q, want text/markdown", captured.ContentType)
		}
		if string(captured.Data) != "# Notes\n\nQuarterly goals." {
			t.Errorf("data = %q", captured.Data)
		}
	})

	t.Run("detects octet-stream content", func(t *testing.T) {
		var captured documents.CreateCommand
		sys := &mockSystem{
			createFn: func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
				captured = cmd
				doc := sampleDoc()
				return &doc, nil
			},
		}
		mux := setupMux(sys.Handler(1 << 20))

		body, ct := multipartBody(t, "plain.txt", "application/octet-stream", []byte("just some words"))
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if captured.ContentType != "text/plain; charset=utf-8" {
			t.Errorf("content type = %q, want sniffed text/plain", captured.ContentType)
		}
	})

	t.Run("missing file returns 400", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("note", "no file here")
		_ = mw.Close()

		req := httptest.NewRequest("POST", "/documents", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := httptest.NewRecorder()
		setupMux((&mockSystem{}).Handler(1<<20)).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("oversized upload returns 413", func(t *testing.T) {
		body, ct := multipartBody(t, "big.txt", "text/plain", bytes.Repeat([]byte("a"), 4096))
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		setupMux((&mockSystem{}).Handler(512)).ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("unsupported kind returns 415", func(t *testing.T) {
		sys := &mockSystem{
			createFn: func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
				return nil, fmt.Errorf("%w: %s", ingest.ErrUnsupported, cmd.Filename)
			},
		}
		body, ct := multipartBody(t, "tool.exe", "application/x-msdownload", []byte{0x4d, 0x5a})
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		setupMux(sys.Handler(1<<20)).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", rec.Code)
		}
	})
}

func TestHandlerDelete(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			if id != doc.ID {
				return documents.ErrNotFound
			}
			return nil
		},
	}
	mux := setupMux(sys.Handler(1 << 20))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"deleted", "/documents/" + doc.ID.String(), http.StatusNoContent},
		{"invalid uuid", "/documents/xyz", http.StatusBadRequest},
		{"not found", "/documents/" + uuid.New().String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("DELETE", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerDownload(t *testing.T) {
	doc := documents.Document{
		ID:          uuid.New(),
		Filename:    "handbook.txt",
		ContentType: "text/plain",
		SizeBytes:   11,
	}
	sys := &mockSystem{
		downFn: func(_ context.Context, id uuid.UUID) (*documents.Document, io.ReadCloser, error) {
			if id != doc.ID {
				return nil, nil, documents.ErrNotFound
			}
			return &doc, io.NopCloser(bytes.NewReader([]byte("hello world"))), nil
		},
	}
	mux := setupMux(sys.Handler(1 << 20))

	t.Run("streams file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/"+doc.ID.String()+"/download", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Header().Get("Content-Type"); got != "text/plain" {
			t.Errorf("Content-Type = %q, want %q", got, "text/plain")
		}
		if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="handbook.txt"` {
			t.Errorf("Content-Disposition = %q", got)
		}
		if got := rec.Body.String(); got != "hello world" {
			t.Errorf("body = %q, want %q", got, "hello world")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/"+uuid.NewString()+"/download", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
