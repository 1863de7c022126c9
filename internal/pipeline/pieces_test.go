package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/internal/weather"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want pipeline.Category
	}{
		{"weather", pipeline.CategoryWeather},
		{" Weather ", pipeline.CategoryWeather},
		{"document", pipeline.CategoryDocument},
		{"PDF", pipeline.CategoryDocument},
		{"unknown", pipeline.CategoryUnknown},
		{"", pipeline.CategoryUnknown},
		{"sports", pipeline.CategoryUnknown},
	}

	for _, tt := range tests {
		if got := pipeline.ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategoryUnmarshalJSON(t *testing.T) {
	var v struct {
		Category pipeline.Category `json:"category"`
	}

	if err := json.Unmarshal([]byte(`{"category": 7}`), &v); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if v.Category != pipeline.CategoryUnknown {
		t.Errorf("Category = %q, want unknown", v.Category)
	}
}

func TestStateUpdatesAreAdditive(t *testing.T) {
	s0 := pipeline.NewState("q")
	s1 := s0.WithClassification(pipeline.Classification{
		Category:  pipeline.CategoryDocument,
		Rationale: "mentions a file",
		Entity:    "budget",
	})
	s2 := s1.WithOutcome(pipeline.Outcome{
		Response:    "answer",
		Sources:     []string{"a.pdf"},
		Success:     true,
		HandlerUsed: pipeline.HandlerDocument,
	})
	s3 := s2.WithClassification(pipeline.Classification{}).WithOutcome(pipeline.Outcome{})

	if s0.Category != "" || s0.Response != "" {
		t.Errorf("original state modified: %+v", s0)
	}
	if s1.Response != "" || s1.Entity != "budget" {
		t.Errorf("s1 = %+v", s1)
	}
	if s3.Category != pipeline.CategoryDocument || s3.Entity != "budget" || s3.Response != "answer" ||
		!s3.Success || !slices.Equal(s3.Sources, []string{"a.pdf"}) {
		t.Errorf("zero-value updates erased fields: %+v", s3)
	}

	s2.Sources[0] = "mutated"
	if s3.Sources[0] != "a.pdf" {
		t.Error("states share a sources slice")
	}
}

func TestFormatReport(t *testing.T) {
	snap := weather.Snapshot{
		City:        "London",
		Country:     "GB",
		Temperature: 15.3,
		FeelsLike:   14,
		Humidity:    72,
		Description: "light intensity drizzle",
		WindSpeed:   4.6,
		Icon:        "09d",
	}

	want := "Current Weather in London, GB:\n" +
		"🌡️ Temperature: 15.3°C (feels like 14.0°C)\n" +
		"💧 Humidity: 72%\n" +
		"🌤️ Conditions: Light Intensity Drizzle\n" +
		"💨 Wind Speed: 4.6 m/s"

	got := pipeline.FormatReport(snap)
	if got != want {
		t.Errorf("FormatReport() =\n%s\nwant\n%s", got, want)
	}
	if again := pipeline.FormatReport(snap); again != got {
		t.Error("FormatReport() is not stable")
	}
}

func TestBuildContext(t *testing.T) {
	got := pipeline.BuildContext([]index.Passage{
		{Content: "first", Source: "a.pdf", Page: "1"},
		{Content: "second", Source: "b.txt"},
	})

	want := "[Source: a.pdf, Page 1]\nfirst\n\n---\n\n[Source: b.txt, Page ?]\nsecond"
	if got != want {
		t.Errorf("BuildContext() = %q, want %q", got, want)
	}
}

func TestSources(t *testing.T) {
	got := pipeline.Sources([]index.Passage{
		{Source: "z.pdf"}, {Source: "a.pdf"}, {Source: "z.pdf"}, {Source: ""},
	})
	if want := []string{"a.pdf", "z.pdf"}; !slices.Equal(got, want) {
		t.Errorf("Sources() = %v, want %v", got, want)
	}
}

func TestHandleFallback(t *testing.T) {
	out := pipeline.HandleFallback("anything")

	if out.Success || out.HandlerUsed != "unknown" || len(out.Sources) != 0 {
		t.Errorf("HandleFallback() = %+v", out)
	}
	for _, want := range []string{"Weather queries", "Document questions"} {
		if !strings.Contains(out.Response, want) {
			t.Errorf("help text missing %q", want)
		}
	}
}

func TestRequestRender(t *testing.T) {
	req := pipeline.Request{
		Template:  "Q: {{.question}}",
		Variables: map[string]any{"question": "why?"},
	}
	got, err := req.Render()
	if err != nil || got != "Q: why?" {
		t.Errorf("Render() = %q, %v", got, err)
	}

	req.Variables = map[string]any{}
	if _, err := req.Render(); err == nil {
		t.Error("Render() with missing variable: expected error")
	}
}

func TestStructured(t *testing.T) {
	type out struct {
		Answer int `json:"answer"`
	}

	inf := &stubInference{classification: "```json\n{\"answer\": 42}\n```"}
	got, err := pipeline.Structured[out](context.Background(), inf, pipeline.Request{}, "{}")
	if err != nil || got.Answer != 42 {
		t.Errorf("Structured() = %+v, %v", got, err)
	}

	inf.classifyErr = errors.New("offline")
	if _, err := pipeline.Structured[out](context.Background(), inf, pipeline.Request{}, "{}"); err == nil {
		t.Error("Structured() expected error")
	}
}

func TestWeatherHandlerInferenceError(t *testing.T) {
	inf := &stubInference{completeErr: errors.New("model overloaded")}
	h := pipeline.NewWeatherHandler(&stubWeather{}, inf, prompts.Defaults{}, 0.7, discard())

	out := h.Handle(context.Background(), "Weather in Rome", "Rome")
	if out.Success {
		t.Error("Success = true, want false")
	}
	if !strings.HasPrefix(out.Response, "Sorry, I encountered an error while fetching weather data:") {
		t.Errorf("Response = %q", out.Response)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PIPELINE_K", "6")
	t.Setenv("TEST_PIPELINE_FALLBACK", "true")

	cfg := pipeline.Config{}
	err := cfg.Finalize(&pipeline.Env{
		RetrievalK:              "TEST_PIPELINE_K",
		FallbackOnClassifyError: "TEST_PIPELINE_FALLBACK",
	})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.RetrievalK != 6 || !cfg.FallbackOnClassifyError {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ClassifyTemperature != 0 || cfg.WeatherTemperature != 0.7 || cfg.DocumentTemperature != 0.3 {
		t.Errorf("temperatures = %v %v %v", cfg.ClassifyTemperature, cfg.WeatherTemperature, cfg.DocumentTemperature)
	}

	bad := pipeline.Config{WeatherTemperature: 5}
	if err := bad.Finalize(nil); err == nil {
		t.Error("Finalize() with temperature 5: expected error")
	}
}

func TestDiagramHandler(t *testing.T) {
	p := newFixture(classification("unknown", "")).pipeline()
	h := pipeline.NewHandler(p)

	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/pipeline/diagram", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != p.Diagram() {
		t.Errorf("body = %q, want diagram", got)
	}
}
