package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/dispatch/internal/pipeline"
)

func newAskCmd(a *app) *cobra.Command {
	var stream, asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return pipeline.ErrEmptyQuery
			}

			out := cmd.OutOrStdout()
			if stream {
				return a.askStream(cmd, query, asJSON)
			}

			st, err := a.pipeline.Run(cmd.Context(), query)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, st)
			}
			printState(out, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "print each stage as it completes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func (a *app) askStream(cmd *cobra.Command, query string, asJSON bool) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	for snap, err := range a.pipeline.Stream(cmd.Context(), query) {
		if err != nil {
			return err
		}
		if asJSON {
			if err := enc.Encode(snap); err != nil {
				return err
			}
			continue
		}
		switch snap.Stage {
		case pipeline.StageClassify:
			fmt.Fprintf(out, "[%s] category=%s entity=%q\n", snap.Stage, snap.State.Category, snap.State.Entity)
		default:
			printState(out, snap.State)
		}
	}
	return nil
}

func printState(w io.Writer, st pipeline.State) {
	fmt.Fprintln(w, st.Response)
	if len(st.Sources) > 0 {
		fmt.Fprintf(w, "\nSources: %s\n", strings.Join(st.Sources, ", "))
	}
	if !st.Success {
		fmt.Fprintf(w, "\n(handler %s did not succeed)\n", st.HandlerUsed)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
