package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/dispatch/internal/ingest"
)

func newWatchCmd(a *app) *cobra.Command {
	var settle time.Duration
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the index in sync with a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := args[0]
			w := ingest.NewWatcher(a.ingester, a.store, settle, a.logger)

			if initial {
				files, err := ingest.Collect([]string{dir})
				if err != nil {
					return err
				}
				for _, f := range files {
					if err := w.Sync(ctx, f); err != nil {
						a.logger.Warn("initial sync failed", "path", f, "error", err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d files; watching %s (Ctrl+C to stop)\n", len(files), dir)
			}

			return w.Watch(ctx, dir)
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", ingest.DefaultSettle, "quiet period before a changed file is re-indexed")
	cmd.Flags().BoolVar(&initial, "initial", true, "index existing files before watching")
	return cmd
}
