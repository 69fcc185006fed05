package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// curriculums: list curriculum ids and names.
func curriculumsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "curriculums",
		Short: "List curriculums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.catalog.ListCurriculums(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
}
