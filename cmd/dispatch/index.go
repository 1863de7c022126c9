package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/dispatch/internal/ingest"
	"github.com/JaimeStill/dispatch/pkg/formatting"
)

func newIndexCmd(a *app) *cobra.Command {
	var concurrency int
	var reset bool

	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index files or directories of documents",
		Long: `Extract, chunk, and index PDF, text, markdown, and HTML files.
Directories are walked recursively. Re-indexing a file replaces its passages.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			files, err := ingest.Collect(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(out, "No supported files found.")
				return nil
			}

			if reset {
				if err := a.store.Reset(ctx); err != nil {
					return err
				}
			}
			for _, f := range files {
				if _, err := a.store.RemoveSource(ctx, filepath.Base(f)); err != nil {
					return err
				}
			}

			results, err := a.ingester.Batch(ctx, files, concurrency)
			if err != nil {
				return err
			}

			var indexed, failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", r.Path, r.Err)
					continue
				}
				indexed += r.Result.Passages
				fmt.Fprintf(out, "ok   %s (%d passages, %s)\n",
					r.Result.Source, r.Result.Passages, formatting.FormatBytes(r.Result.Bytes, 1))
			}

			fmt.Fprintf(out, "\nIndexed %d passages from %d files", indexed, len(results)-failed)
			if failed > 0 {
				fmt.Fprintf(out, ", %d failed", failed)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "files to ingest in parallel")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the index first")
	return cmd
}
