package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/inference"
	"github.com/JaimeStill/dispatch/internal/infrastructure"
	"github.com/JaimeStill/dispatch/internal/ingest"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/internal/prompts"
)

// app holds the systems a command runs against. They are built once in
// the root PersistentPreRunE and closed in PersistentPostRunE.
type app struct {
	configPath string
	verbose    bool
	memory     bool

	cfg      *config.Config
	logger   *slog.Logger
	store    index.Store
	ingester *ingest.Ingester
	pipeline *pipeline.Pipeline
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dispatch",
		Short: "Route questions to a weather lookup or a document index",
		Long: `dispatch classifies a natural-language question and answers it with
live weather data or passages retrieved from locally indexed documents.

The CLI keeps its passage index in SQLite (or memory with --memory) and
reads the same config.toml and DISPATCH_* variables as the server.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default config.toml or $DISPATCH_CONFIG)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")
	root.PersistentFlags().BoolVar(&a.memory, "memory", false, "use an in-memory index for this invocation")

	root.AddCommand(
		newAskCmd(a),
		newIndexCmd(a),
		newWatchCmd(a),
		newStatsCmd(a),
		newDiagramCmd(a),
		newMCPCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(a.configPath)
	if err != nil {
		return err
	}
	if a.memory {
		cfg.Index.Backend = index.BackendMemory
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := index.New(&cfg.Index, nil)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.store = store
	a.ingester = ingest.New(
		store,
		ingest.NewChunker(
			ingest.WithChunkSize(cfg.Index.ChunkSize),
			ingest.WithOverlap(cfg.Index.ChunkOverlap),
		),
		logger,
	)
	a.pipeline = pipeline.New(&pipeline.Runtime{
		Config:    cfg.Pipeline,
		Inference: inference.New(cfg.Agent, logger),
		Prompts:   prompts.Defaults{},
		Weather:   infrastructure.NewWeather(&cfg.Weather, logger),
		Retriever: store,
		Logger:    logger,
	})

	logger.Debug("dispatch ready", "index", cfg.Index.Backend, "path", cfg.Index.Path)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
