package pipeline

import "slices"

// Classification is the result of classifying a query.
type Classification struct {
	Category  Category `json:"category"`
	Rationale string   `json:"rationale"`
	Entity    string   `json:"entity"`
}

// Outcome is what a handler contributes to a run.
type Outcome struct {
	Response    string
	Sources     []string
	Success     bool
	HandlerUsed string
}

// State is the record a run accumulates. Values are never modified in place:
// each stage returns a new State, and a field already set is kept when the
// update carries its zero value.
type State struct {
	Query       string   `json:"query"`
	Category    Category `json:"category"`
	Entity      string   `json:"entity"`
	Rationale   string   `json:"rationale"`
	Response    string   `json:"response"`
	Sources     []string `json:"sources"`
	Success     bool     `json:"success"`
	HandlerUsed string   `json:"handler_used"`
}

// NewState starts a run for query.
func NewState(query string) State {
	return State{Query: query, Sources: []string{}}
}

// WithClassification returns a copy of s carrying c.
func (s State) WithClassification(c Classification) State {
	next := s.clone()
	if c.Category != "" {
		next.Category = c.Category
	}
	if c.Entity != "" {
		next.Entity = c.Entity
	}
	if c.Rationale != "" {
		next.Rationale = c.Rationale
	}
	return next
}

// WithOutcome returns a copy of s carrying o.
func (s State) WithOutcome(o Outcome) State {
	next := s.clone()
	if o.Response != "" {
		next.Response = o.Response
	}
	if len(o.Sources) > 0 {
		next.Sources = slices.Clone(o.Sources)
	}
	next.Success = next.Success || o.Success
	if o.HandlerUsed != "" {
		next.HandlerUsed = o.HandlerUsed
	}
	return next
}

func (s State) clone() State {
	next := s
	next.Sources = slices.Clone(s.Sources)
	if next.Sources == nil {
		next.Sources = []string{}
	}
	return next
}

// Stage names a point in a run at which a Snapshot is taken.
type Stage string

const (
	StageClassify Stage = "classify"
	StageDone     Stage = "done"
)

// Snapshot is the state of a run after a stage completes.
type Snapshot struct {
	Stage Stage `json:"stage"`
	State State `json:"state"`
}
