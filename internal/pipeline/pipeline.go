// Package pipeline routes a natural-language query to exactly one handler.
//
// A run classifies the query, follows one edge of a state graph to the
// weather, document, or fallback handler, and returns the accumulated State.
// Collaborators (inference, weather lookup, passage retrieval, prompt text)
// are reached through interfaces only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/pkg/metrics"
)

const keyState = "pipeline_state"

// Node names in the run graph.
const (
	NodeClassify = "classify"
	NodeWeather  = "weather"
	NodeDocument = "document"
	NodeFallback = "fallback"
	NodeDone     = "done"
)

// Runtime bundles the collaborators a Pipeline runs with.
type Runtime struct {
	Config    Config
	Inference Inference
	Prompts   prompts.Source
	Weather   WeatherSource
	Retriever Retriever
	Logger    *slog.Logger
}

// Pipeline executes runs. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	classifier *Classifier
	weather    *WeatherHandler
	document   *DocumentHandler
	logger     *slog.Logger
}

func New(rt *Runtime) *Pipeline {
	logger := rt.Logger.With("system", "pipeline")
	src := rt.Prompts
	if src == nil {
		src = prompts.Defaults{}
	}

	return &Pipeline{
		cfg:        rt.Config,
		classifier: NewClassifier(rt.Inference, src, rt.Config.ClassifyTemperature, rt.Logger),
		weather:    NewWeatherHandler(rt.Weather, rt.Inference, src, rt.Config.WeatherTemperature, rt.Logger),
		document:   NewDocumentHandler(rt.Retriever, rt.Inference, src, rt.Config.RetrievalK, rt.Config.DocumentTemperature, rt.Logger),
		logger:     logger,
	}
}

// Run classifies query, dispatches it to one handler, and returns the final
// state. Errors are returned only when classification or the graph itself fails.
func (p *Pipeline) Run(ctx context.Context, query string) (State, error) {
	return p.execute(ctx, query, nil)
}

// Stream runs query like Run and yields a snapshot after classification and
// another with the final state. A failed run yields one error and stops.
func (p *Pipeline) Stream(ctx context.Context, query string) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		type result struct {
			state State
			err   error
		}

		snaps := make(chan Snapshot)
		done := make(chan result, 1)

		go func() {
			defer close(snaps)
			st, err := p.execute(ctx, query, func(s Snapshot) {
				select {
				case snaps <- s:
				case <-ctx.Done():
				}
			})
			done <- result{st, err}
		}()

		for s := range snaps {
			if !yield(s, nil) {
				cancel()
				for range snaps {
				}
				return
			}
		}

		res := <-done
		if res.err != nil {
			yield(Snapshot{}, res.err)
			return
		}
		yield(Snapshot{Stage: StageDone, State: res.state}, nil)
	}
}

// Diagram describes the run graph as a mermaid flowchart.
func (p *Pipeline) Diagram() string {
	lines := []string{
		"graph TD",
		"    Start([Start]) --> Classify[classify]",
		"    Classify -->|weather| Weather[weather]",
		"    Classify -->|document| Document[document]",
		"    Classify -->|unknown| Fallback[fallback]",
		"    Weather --> Done([done])",
		"    Document --> Done",
		"    Fallback --> Done",
	}
	return strings.Join(lines, "\n") + "\n"
}

func (p *Pipeline) execute(ctx context.Context, query string, emit func(Snapshot)) (State, error) {
	start := time.Now()

	var classifyErr error
	graph, err := p.buildGraph(&classifyErr, emit)
	if err != nil {
		return State{}, fmt.Errorf("%w: build: %w", ErrGraphFailed, err)
	}

	initial := state.New(nil).Set(keyState, NewState(query))

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		if classifyErr != nil {
			return State{}, classifyErr
		}
		return State{}, fmt.Errorf("%w: execute: %w", ErrGraphFailed, err)
	}

	st, err := stateOf(final)
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrGraphFailed, err)
	}

	metrics.ObserveRun(string(st.Category), st.HandlerUsed, st.Success, start)
	p.logger.InfoContext(ctx, "run complete",
		"category", st.Category,
		"handler", st.HandlerUsed,
		"success", st.Success,
		"duration", time.Since(start),
	)
	return st, nil
}

func (p *Pipeline) buildGraph(classifyErr *error, emit func(Snapshot)) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("dispatch-pipeline")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := []struct {
		name string
		node state.StateNode
	}{
		{NodeClassify, p.classifyNode(classifyErr, emit)},
		{NodeWeather, handlerNode(func(ctx context.Context, st State) Outcome {
			return p.weather.Handle(ctx, st.Query, st.Entity)
		})},
		{NodeDocument, handlerNode(func(ctx context.Context, st State) Outcome {
			return p.document.Handle(ctx, st.Query)
		})},
		{NodeFallback, handlerNode(func(_ context.Context, st State) Outcome {
			return HandleFallback(st.Query)
		})},
		{NodeDone, state.NewFunctionNode(func(_ context.Context, s state.State) (state.State, error) {
			return s, nil
		})},
	}
	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	edges := []struct {
		from, to string
		pred     func(state.State) bool
	}{
		{NodeClassify, NodeWeather, isWeather},
		{NodeClassify, NodeDocument, isDocument},
		{NodeClassify, NodeFallback, state.Not(isRouted)},
		{NodeWeather, NodeDone, nil},
		{NodeDocument, NodeDone, nil},
		{NodeFallback, NodeDone, nil},
	}
	for _, e := range edges {
		if err := graph.AddEdge(e.from, e.to, e.pred); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint(NodeClassify); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint(NodeDone); err != nil {
		return nil, err
	}
	return graph, nil
}

func (p *Pipeline) classifyNode(classifyErr *error, emit func(Snapshot)) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		st, err := stateOf(s)
		if err != nil {
			return s, err
		}

		c, err := p.classifier.Classify(ctx, st.Query)
		if err != nil {
			if !p.cfg.FallbackOnClassifyError || errors.Is(err, context.Canceled) {
				*classifyErr = err
				return s, err
			}
			p.logger.WarnContext(ctx, "classification failed, routing to fallback", "error", err)
			c = Classification{Category: CategoryUnknown, Rationale: err.Error()}
		}

		st = st.WithClassification(c)
		if emit != nil {
			emit(Snapshot{Stage: StageClassify, State: st})
		}
		return s.Set(keyState, st), nil
	})
}

func handlerNode(handle func(context.Context, State) Outcome) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		st, err := stateOf(s)
		if err != nil {
			return s, err
		}
		return s.Set(keyState, st.WithOutcome(handle(ctx, st))), nil
	})
}

func stateOf(s state.State) (State, error) {
	val, ok := s.Get(keyState)
	if !ok {
		return State{}, fmt.Errorf("missing %s in graph state", keyState)
	}
	st, ok := val.(State)
	if !ok {
		return State{}, fmt.Errorf("%s is not pipeline.State", keyState)
	}
	return st, nil
}

func category(s state.State) Category {
	st, err := stateOf(s)
	if err != nil {
		return CategoryUnknown
	}
	return st.Category
}

func isWeather(s state.State) bool  { return category(s) == CategoryWeather }
func isDocument(s state.State) bool { return category(s) == CategoryDocument }
func isRouted(s state.State) bool   { return isWeather(s) || isDocument(s) }
