package module_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/dispatch/pkg/middleware"
	"github.com/JaimeStill/dispatch/pkg/module"
)

func mustModule(t *testing.T, prefix string, h http.Handler, mws ...middleware.Func) *module.Module {
	t.Helper()
	m, err := module.New(prefix, h, mws...)
	if err != nil {
		t.Fatalf("New(%q) error = %v", prefix, err)
	}
	return m
}

func TestNewPrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"/api", false},
		{"/mcp", false},
		{"", true},
		{"/", true},
		{"api", true},
		{"/api/v1", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			m, err := module.New(tt.prefix, http.NewServeMux())
			if tt.wantErr {
				if !errors.Is(err, module.ErrInvalidPrefix) {
					t.Errorf("New(%q) error = %v, want %v", tt.prefix, err, module.ErrInvalidPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.prefix, err)
			}
			if m.Prefix() != tt.prefix {
				t.Errorf("Prefix() = %s, want %s", m.Prefix(), tt.prefix)
			}
		})
	}
}

func TestServeStripsPrefix(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantPath string
	}{
		{"nested", "/api/runs", "/runs"},
		{"root", "/api", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			m := mustModule(t, "/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Path
			}))

			req := httptest.NewRequest("GET", tt.path, nil)
			m.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.wantPath {
				t.Errorf("inner path = %s, want %s", got, tt.wantPath)
			}
			if req.URL.Path != tt.path {
				t.Errorf("caller request mutated: path = %s, want %s", req.URL.Path, tt.path)
			}
		})
	}
}

func TestModuleMiddleware(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Func {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	m := mustModule(t, "/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("cors"))
	m.Use(tag("logger"))

	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api", nil))

	want := []string{"cors", "logger", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestRouter(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("runs"))
	})

	router := module.NewRouter()
	if err := router.Mount(mustModule(t, "/api", api)); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"module", "/api/runs", http.StatusOK, "runs"},
		{"trailing slash", "/api/runs/", http.StatusOK, "runs"},
		{"native", "/healthz", http.StatusOK, "ok"},
		{"unknown", "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRouterDuplicateMount(t *testing.T) {
	router := module.NewRouter()
	if err := router.Mount(mustModule(t, "/api", http.NewServeMux())); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if err := router.Mount(mustModule(t, "/api", http.NewServeMux())); err == nil {
		t.Error("second Mount() of /api returned nil error")
	}
}
