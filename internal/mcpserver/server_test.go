package mcpserver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/mcpserver"
	"github.com/JaimeStill/dispatch/internal/pipeline"
)

type mockRunner struct {
	state pipeline.State
	err   error
	query string
}

func (m *mockRunner) Run(_ context.Context, query string) (pipeline.State, error) {
	m.query = query
	return m.state, m.err
}

type mockStats struct {
	stats index.Stats
	err   error
}

func (m *mockStats) Stats(context.Context) (index.Stats, error) {
	return m.stats, m.err
}

func TestNew(t *testing.T) {
	_, err := mcpserver.New(nil, &mockStats{}, "test")
	assert.ErrorIs(t, err, mcpserver.ErrMissingRunner)

	_, err = mcpserver.New(&mockRunner{}, nil, "test")
	assert.ErrorIs(t, err, mcpserver.ErrMissingIndex)

	s, err := mcpserver.New(&mockRunner{}, &mockStats{}, "test")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the run result", func(t *testing.T) {
		runner := &mockRunner{state: pipeline.State{
			Query:       "What's the weather in Paris?",
			Category:    pipeline.CategoryWeather,
			Entity:      "Paris",
			Response:    "Sunny and 22°C.",
			Sources:     []string{},
			Success:     true,
			HandlerUsed: pipeline.HandlerWeather,
		}}
		s, err := mcpserver.New(runner, &mockStats{}, "test")
		require.NoError(t, err)

		_, out, err := s.Ask(ctx, nil, mcpserver.AskInput{Query: "  What's the weather in Paris?  "})

		require.NoError(t, err)
		assert.Equal(t, "What's the weather in Paris?", runner.query)
		assert.Equal(t, "weather", out.Category)
		assert.Equal(t, "Paris", out.Entity)
		assert.Equal(t, "Sunny and 22°C.", out.Response)
		assert.True(t, out.Success)
		assert.Equal(t, pipeline.HandlerWeather, out.HandlerUsed)
	})

	t.Run("rejects a blank query", func(t *testing.T) {
		runner := &mockRunner{}
		s, err := mcpserver.New(runner, &mockStats{}, "test")
		require.NoError(t, err)

		_, _, err = s.Ask(ctx, nil, mcpserver.AskInput{Query: "   "})

		assert.ErrorIs(t, err, pipeline.ErrEmptyQuery)
		assert.Empty(t, runner.query)
	})

	t.Run("wraps run errors", func(t *testing.T) {
		s, err := mcpserver.New(&mockRunner{err: errors.New("model offline")}, &mockStats{}, "test")
		require.NoError(t, err)

		_, _, err = s.Ask(ctx, nil, mcpserver.AskInput{Query: "hi"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "model offline")
	})
}

func TestIndexStats(t *testing.T) {
	ctx := context.Background()
	want := index.Stats{Backend: index.BackendSQLite, Passages: 12, Sources: 3}

	s, err := mcpserver.New(&mockRunner{}, &mockStats{stats: want}, "test")
	require.NoError(t, err)

	_, got, err := s.IndexStats(ctx, nil, mcpserver.StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	s, err = mcpserver.New(&mockRunner{}, &mockStats{err: index.ErrClosed}, "test")
	require.NoError(t, err)

	_, _, err = s.IndexStats(ctx, nil, mcpserver.StatsInput{})
	assert.ErrorIs(t, err, index.ErrClosed)
}
