package pagination_test

import (
	"encoding/json"
	"net/url"
	"reflect"
	"testing"

	"github.com/JaimeStill/dispatch/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     pagination.Config
		env     map[string]string
		want    pagination.Config
		wantErr bool
	}{
		{"defaults", pagination.Config{}, nil, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}, false},
		{"explicit", pagination.Config{DefaultPageSize: 5, MaxPageSize: 50}, nil, pagination.Config{DefaultPageSize: 5, MaxPageSize: 50}, false},
		{"env override", pagination.Config{}, map[string]string{"TEST_PAGE_SIZE": "30"}, pagination.Config{DefaultPageSize: 30, MaxPageSize: 100}, false},
		{"default exceeds max", pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}, nil, pagination.Config{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			c := tt.cfg
			err := c.Finalize(&pagination.Env{DefaultPageSize: "TEST_PAGE_SIZE", MaxPageSize: "TEST_MAX_PAGE_SIZE"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c != tt.want {
				t.Errorf("Finalize() = %+v, want %+v", c, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	blank := "  "
	tests := []struct {
		name          string
		req           pagination.PageRequest
		wantPage      int
		wantSize      int
		wantSearchNil bool
	}{
		{"zero values", pagination.PageRequest{}, 1, 20, true},
		{"oversized", pagination.PageRequest{Page: 3, PageSize: 500}, 3, 100, true},
		{"negative page", pagination.PageRequest{Page: -1, PageSize: 10}, 1, 10, true},
		{"blank search dropped", pagination.PageRequest{Search: &blank}, 1, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.req
			r.Normalize(cfg)

			if r.Page != tt.wantPage || r.PageSize != tt.wantSize {
				t.Errorf("Normalize() = page %d size %d, want page %d size %d", r.Page, r.PageSize, tt.wantPage, tt.wantSize)
			}
			if (r.Search == nil) != tt.wantSearchNil {
				t.Errorf("Search = %v, want nil %v", r.Search, tt.wantSearchNil)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	r := pagination.PageRequestFromQuery(url.Values{
		"page":      {"2"},
		"page_size": {"15"},
		"search":    {"handbook"},
		"sort":      {"-uploaded_at,filename"},
	}, cfg)

	if r.Page != 2 || r.PageSize != 15 {
		t.Errorf("page = %d size = %d, want 2 and 15", r.Page, r.PageSize)
	}
	if r.Search == nil || *r.Search != "handbook" {
		t.Errorf("Search = %v, want handbook", r.Search)
	}
	want := pagination.SortFields{{Field: "uploaded_at", Descending: true}, {Field: "filename"}}
	if !reflect.DeepEqual(r.Sort, want) {
		t.Errorf("Sort = %v, want %v", r.Sort, want)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want pagination.SortFields
	}{
		{"string", `{"sort": "name,-created_at"}`, pagination.SortFields{{Field: "name"}, {Field: "created_at", Descending: true}}},
		{"array", `{"sort": [{"field": "name", "descending": true}]}`, pagination.SortFields{{Field: "name", Descending: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r pagination.PageRequest
			if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(r.Sort, tt.want) {
				t.Errorf("Sort = %v, want %v", r.Sort, tt.want)
			}
		})
	}

	var r pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"sort": 7}`), &r); err == nil {
		t.Error("expected error for numeric sort")
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		data      []int
		total     int
		pageSize  int
		wantPages int
	}{
		{"empty", nil, 0, 20, 1},
		{"exact", []int{1, 2}, 40, 20, 2},
		{"remainder", []int{1}, 41, 20, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pagination.NewPageResult(tt.data, tt.total, 1, tt.pageSize)
			if r.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", r.TotalPages, tt.wantPages)
			}
			if r.Data == nil {
				t.Error("Data is nil, want empty slice")
			}
		})
	}
}
