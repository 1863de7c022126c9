package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/internal/weather"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubInference returns classification JSON for structured calls and echoes
// the rendered user prompt for free-text calls.
type stubInference struct {
	classification string
	classifyErr    error
	completeErr    error

	structured atomic.Int32
	complete   atomic.Int32
	lastTemp   atomic.Value
}

func (s *stubInference) Complete(_ context.Context, req pipeline.Request) (string, error) {
	s.complete.Add(1)
	s.lastTemp.Store(req.Temperature)
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return req.Render()
}

func (s *stubInference) CompleteStructured(_ context.Context, req pipeline.Request, schema string) (string, error) {
	s.structured.Add(1)
	if s.classifyErr != nil {
		return "", s.classifyErr
	}
	return s.classification, nil
}

type stubWeather struct {
	snap  weather.Snapshot
	err   error
	calls atomic.Int32
}

func (s *stubWeather) FetchCurrent(_ context.Context, city string) (weather.Snapshot, error) {
	s.calls.Add(1)
	if s.err != nil {
		return weather.Snapshot{}, s.err
	}
	snap := s.snap
	if snap.City == "" {
		snap.City = city
	}
	return snap, nil
}

type stubRetriever struct {
	passages []index.Passage
	err      error
	calls    atomic.Int32
	lastK    atomic.Int32
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, k int) ([]index.Passage, error) {
	s.calls.Add(1)
	s.lastK.Store(int32(k))
	if s.err != nil {
		return nil, s.err
	}
	return s.passages[:min(k, len(s.passages))], nil
}

type fixture struct {
	inf       *stubInference
	weather   *stubWeather
	retriever *stubRetriever
	cfg       pipeline.Config
}

func newFixture(classification string) *fixture {
	cfg := pipeline.Config{}
	_ = cfg.Finalize(nil)
	return &fixture{
		inf:       &stubInference{classification: classification},
		weather:   &stubWeather{},
		retriever: &stubRetriever{},
		cfg:       cfg,
	}
}

func (f *fixture) pipeline() *pipeline.Pipeline {
	return pipeline.New(&pipeline.Runtime{
		Config:    f.cfg,
		Inference: f.inf,
		Weather:   f.weather,
		Retriever: f.retriever,
		Logger:    discard(),
	})
}

func classification(category, entity string) string {
	return `{"category": "` + category + `", "rationale": "test", "entity": "` + entity + `"}`
}
