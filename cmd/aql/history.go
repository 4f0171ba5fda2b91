package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/everydev1618/aql/internal/store"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run with its events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			if s == nil {
				return errors.New("run history is disabled (store.enabled: false)")
			}

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := s.ListRuns(limit)
				if err != nil {
					return err
				}
				if output != "text" {
					return encode(w, output, runs)
				}
				writeRuns(w, runs)
				return nil
			}

			run, err := s.GetRun(args[0])
			if err != nil {
				return err
			}
			events, err := s.ListEvents(run.RunID)
			if err != nil {
				return err
			}
			if output != "text" {
				return encode(w, output, struct {
					store.Run `yaml:",inline"`
					Events    []store.RunEvent `json:"events" yaml:"events"`
				}{*run, events})
			}
			writeRun(w, run, events)
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tQUERY\tSTATUS\tOPS\tTOKENS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.RunID, r.Query, r.Status, r.Operations, r.Tokens,
			r.StartedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func writeRun(w io.Writer, r *store.Run, events []store.RunEvent) {
	fmt.Fprintf(w, "Run:     %s\n", r.RunID)
	fmt.Fprintf(w, "Query:   %s\n", r.Query)
	fmt.Fprintf(w, "Status:  %s\n", r.Status)
	fmt.Fprintf(w, "Inputs:  %s\n", r.Inputs)
	fmt.Fprintf(w, "Started: %s\n", r.StartedAt.Local().Format(time.DateTime))
	if r.CompletedAt != nil {
		fmt.Fprintf(w, "Took:    %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", r.Error)
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tTYPE\tOPERATION")
	for _, e := range events {
		name := e.Alias
		if name == "" {
			name = e.OperationID
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", e.Timestamp.Local().Format("15:04:05.000"), e.Type, e.OperationType, name)
		if e.Error != "" {
			line += "\t" + e.Error
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}
