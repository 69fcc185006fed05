package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/navigator"
)

// tree <curriculum>: print the topic tree. --select expands the path to a
// topic and lists the exams filed under it.
func treeCmd(a *app) *cobra.Command {
	var (
		selectID string
		expand   []string
	)
	cmd := &cobra.Command{
		Use:   "tree <curriculum>",
		Short: "Print a curriculum's topic tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view := navigator.NewLibraryView(a.catalog)
			if err := view.SwitchCurriculum(ctx, args[0]); err != nil {
				return err
			}
			for _, id := range expand {
				view.Toggle(id)
			}
			if selectID != "" {
				res, err := view.Select(ctx, selectID)
				if err != nil {
					return err
				}
				if res.Err != nil {
					return res.Err
				}
			}

			snap := view.Snapshot()
			if snap.Integrity != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", snap.Integrity)
			}
			out := cmd.OutOrStdout()
			printTree(out, snap.Tree, snap.Expanded, snap.SelectedID, 0)

			if snap.SelectedID != "" {
				names := make([]string, 0, len(snap.Path))
				for _, n := range snap.Path {
					names = append(names, n.Name)
				}
				fmt.Fprintf(out, "\n%s\n", strings.Join(names, " > "))
				if len(snap.Data) == 0 {
					fmt.Fprintln(out, "  no exams")
				}
				for _, e := range snap.Data {
					fmt.Fprintf(out, "  %s  %s\n", e.ID, e.Title)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&selectID, "select", "", "topic to select")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "topics to expand")
	return cmd
}

func printTree(w io.Writer, nodes []curriculum.TopicNode, expanded []string, selected string, depth int) {
	for _, n := range nodes {
		marker := "   "
		if n.HasChildren() {
			marker = "[+]"
			if slices.Contains(expanded, n.ID) {
				marker = "[-]"
			}
		}
		sel := ""
		if n.ID == selected {
			sel = " *"
		}
		fmt.Fprintf(w, "%s%s %s (%s)%s\n", strings.Repeat("  ", depth), marker, n.Name, n.ID, sel)
		if n.HasChildren() && slices.Contains(expanded, n.ID) {
			printTree(w, n.Children, expanded, selected, depth+1)
		}
	}
}
