// Package runs executes pipeline runs on behalf of HTTP clients and keeps
// a history of every run it executes.
package runs

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/pipeline"
)

// Run is a persisted pipeline run. Error is set when the run failed before
// a handler produced a response.
type Run struct {
	ID          uuid.UUID `json:"id"`
	Query       string    `json:"query"`
	Category    string    `json:"category"`
	Entity      string    `json:"entity"`
	Rationale   string    `json:"rationale"`
	Response    string    `json:"response"`
	Sources     []string  `json:"sources"`
	Success     bool      `json:"success"`
	HandlerUsed string    `json:"handler_used"`
	DurationMs  int64     `json:"duration_ms"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExecuteCommand is a query to run.
type ExecuteCommand struct {
	Query string `json:"query"`
}

// Validate trims the query and rejects a blank one.
func (c *ExecuteCommand) Validate() error {
	c.Query = strings.TrimSpace(c.Query)
	if c.Query == "" {
		return pipeline.ErrEmptyQuery
	}
	return nil
}

// Executor runs queries through the pipeline.
type Executor interface {
	Run(ctx context.Context, query string) (pipeline.State, error)
	Stream(ctx context.Context, query string) iter.Seq2[pipeline.Snapshot, error]
}

// Event is one line of a streamed run: a stage snapshot, the saved run, or an error.
type Event struct {
	Stage pipeline.Stage  `json:"stage"`
	State *pipeline.State `json:"state,omitempty"`
	Run   *Run            `json:"run,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StageSaved marks the final streamed event carrying the persisted run.
const StageSaved pipeline.Stage = "saved"

func fromState(st pipeline.State, elapsed time.Duration, runErr error) Run {
	r := Run{
		Query:       st.Query,
		Category:    string(st.Category),
		Entity:      st.Entity,
		Rationale:   st.Rationale,
		Response:    st.Response,
		Sources:     st.Sources,
		Success:     st.Success,
		HandlerUsed: st.HandlerUsed,
		DurationMs:  elapsed.Milliseconds(),
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if runErr != nil {
		msg := runErr.Error()
		r.Error = &msg
	}
	return r
}
