package pipeline

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/weather"
	"github.com/JaimeStill/dispatch/pkg/formatting"
)

// Request is one inference call: system instructions, a user template, the
// values it is rendered with, and a sampling temperature.
type Request struct {
	Instructions string
	Template     string
	Variables    map[string]any
	Temperature  float64
}

// Render executes the template against the variables. A missing variable is an error.
func (r Request) Render() (string, error) {
	tmpl, err := template.New("request").Option("missingkey=error").Parse(r.Template)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, r.Variables); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return sb.String(), nil
}

// Inference produces text from a request. CompleteStructured constrains the
// output to the JSON shape described by schema.
type Inference interface {
	Complete(ctx context.Context, req Request) (string, error)
	CompleteStructured(ctx context.Context, req Request, schema string) (string, error)
}

// WeatherSource looks up current conditions. Unknown cities return weather.ErrNotFound.
type WeatherSource interface {
	FetchCurrent(ctx context.Context, city string) (weather.Snapshot, error)
}

// Retriever returns up to k passages relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]index.Passage, error)
}

// Structured runs a structured call and decodes the response into T.
// Raw JSON and fenced JSON are both accepted.
func Structured[T any](ctx context.Context, inf Inference, req Request, schema string) (T, error) {
	var zero T

	text, err := inf.CompleteStructured(ctx, req, schema)
	if err != nil {
		return zero, err
	}

	out, err := formatting.Parse[T](text)
	if err != nil {
		return zero, fmt.Errorf("decode structured response: %w", err)
	}
	return out, nil
}
