package prompts

import "context"

// Source resolves the effective instructions and spec for a stage.
type Source interface {
	Instructions(ctx context.Context, stage Stage) (string, error)
	Spec(ctx context.Context, stage Stage) (string, error)
}

// Defaults is a Source that always returns the built-in text.
type Defaults struct{}

func (Defaults) Instructions(_ context.Context, stage Stage) (string, error) {
	return Instructions(stage)
}

func (Defaults) Spec(_ context.Context, stage Stage) (string, error) {
	return Spec(stage)
}
