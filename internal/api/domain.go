package api

import (
	"github.com/JaimeStill/dispatch/internal/documents"
	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/ingest"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/internal/runs"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Prompts   prompts.System
	Runs      runs.System
	Pipeline  *pipeline.Pipeline
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	promptsSystem := prompts.New(db, runtime.Logger, runtime.Pagination)

	p := pipeline.New(&pipeline.Runtime{
		Config:    runtime.PipelineConfig,
		Inference: runtime.Inference,
		Prompts:   promptsSystem,
		Weather:   runtime.Weather,
		Retriever: runtime.Index,
		Logger:    runtime.Logger,
	})

	ingester := ingest.New(
		runtime.Index,
		ingest.NewChunker(
			ingest.WithChunkSize(runtime.IndexConfig.ChunkSize),
			ingest.WithOverlap(runtime.IndexConfig.ChunkOverlap),
		),
		runtime.Logger,
	)

	var unindexer documents.Unindexer
	if runtime.IndexConfig.Backend != index.BackendPostgres {
		unindexer = runtime.Index
	}

	docsSystem := documents.New(
		db,
		runtime.Storage,
		ingester,
		unindexer,
		runtime.Logger,
		runtime.Pagination,
	)

	runsSystem := runs.New(db, p, runtime.Logger, runtime.Pagination)

	return &Domain{
		Documents: docsSystem,
		Prompts:   promptsSystem,
		Runs:      runsSystem,
		Pipeline:  p,
	}
}
