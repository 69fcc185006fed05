package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-classroom/internal/grading"
)

// show <attempt>: print an attempt with its responses and grading state.
func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <attempt>",
		Short: "Print an attempt and its grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			d := wf.Detail()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "attempt   %s\n", d.Attempt.ID)
			fmt.Fprintf(out, "exam      %s\n", d.Attempt.ExamTitle)
			fmt.Fprintf(out, "state     %s", d.State)
			if wf.Locked() {
				fmt.Fprint(out, " (locked)")
			}
			fmt.Fprintln(out)
			if d.EvaluatedDocument != "" {
				fmt.Fprintf(out, "document  %s\n", d.EvaluatedDocument)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\nQUESTION\tMARK\tMAX\tREMARKS")
			for _, r := range d.Responses {
				mark := "-"
				if r.TeacherMark != nil {
					mark = strconv.FormatFloat(*r.TeacherMark, 'f', -1, 64)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.QuestionID, mark, strconv.FormatFloat(r.MaxMarks, 'f', -1, 64), r.Remarks)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			awarded, possible := wf.Total()
			fmt.Fprintf(out, "total     %s / %s\n", strconv.FormatFloat(awarded, 'f', -1, 64), strconv.FormatFloat(possible, 'f', -1, 64))
			return nil
		},
	}
}

// grade <attempt> <question> [mark]: set one question's mark. Omitting the
// mark clears it.
func gradeCmd(a *app) *cobra.Command {
	var remarks string
	cmd := &cobra.Command{
		Use:   "grade <attempt> <question> [mark]",
		Short: "Set the mark and remarks of one question",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in := grading.GradeInput{QuestionID: args[1], Remarks: remarks}
			if len(args) == 3 {
				in.Mark = args[2]
			}
			if err := wf.SetGrade(cmd.Context(), in); err != nil {
				return err
			}
			awarded, possible := wf.Total()
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s; total %s / %s\n", args[1],
				strconv.FormatFloat(awarded, 'f', -1, 64), strconv.FormatFloat(possible, 'f', -1, 64))
			return nil
		},
	}
	cmd.Flags().StringVar(&remarks, "remarks", "", "remarks for the student")
	return cmd
}

// upload <attempt> <file>: upload the evaluated document.
func uploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <attempt> <file>",
		Short: "Upload the evaluated document of an attempt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			if err := wf.UploadEvaluatedDocument(cmd.Context(), filepath.Base(args[1]), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", wf.Detail().EvaluatedDocument)
			return nil
		},
	}
}

// finalize <attempt>: lock the attempt's grades.
func finalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <attempt>",
		Short: "Lock an attempt's grades against further edits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ack, err := wf.Finalize(cmd.Context())
			if err != nil {
				return err
			}
			at := ack.FinalizedAt.UTC().Format(time.RFC3339)
			if ack.AlreadyFinalized {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was already finalized at %s\n", args[0], at)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "finalized %s at %s\n", args[0], at)
			return nil
		},
	}
}
