package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/navigator"
	"github.com/p-n-ai/pai-classroom/internal/report"
)

// report <curriculum> <topic>: per-student rollup of the attempts under a
// topic, or under the topic and its subtopics with --subtopics.
func reportCmd(a *app) *cobra.Command {
	var (
		filters   attempt.Filters
		xlsx      string
		subtopics bool
	)
	cmd := &cobra.Command{
		Use:   "report <curriculum> <topic>",
		Short: "Per-student rollup of attempts under a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var opts []navigator.ReportOption
			if subtopics {
				opts = append(opts, navigator.WithSubtopics())
			}
			view := navigator.NewReportView(a.catalog, a.attempts, opts...)
			if err := view.SwitchCurriculum(ctx, args[0]); err != nil {
				return err
			}
			view.SetFilters(ctx, filters)
			res, err := view.Select(ctx, args[1])
			if err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}

			snap := view.Snapshot()
			if snap.Integrity != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", snap.Integrity)
			}
			rows := snap.Data
			if xlsx != "" {
				if err := writeXLSXFile(xlsx, args[1], rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), xlsx)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STUDENT\tATTEMPTS\tLAST ACTIVITY\tLAST EXAM")
			for _, r := range rows {
				last := "-"
				if r.LastActivityAt != nil {
					last = r.LastActivityAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.DisplayName(), r.AttemptCount, last, r.LastExamTitle)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&filters.CompletedOnly, "completed-only", false, "only finished attempts")
	cmd.Flags().StringVar(&filters.Level, "level", "", "exam level filter")
	cmd.Flags().IntVar(&filters.PaperNumber, "paper", 0, "paper number filter")
	cmd.Flags().BoolVar(&subtopics, "subtopics", false, "include attempts filed under subtopics")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the rollup to this .xlsx file")
	return cmd
}

func writeXLSXFile(path, title string, rows []report.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteXLSX(f, title, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
