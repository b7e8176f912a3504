package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systemstart/buildsteps/pkg/processing"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the jobs of the manifest in declaration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.loadManifest()
			if err != nil {
				return err
			}

			reg := processing.NewRegistry(m)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, j := range reg.Jobs() {
				state := "active"
				if reg.IsRetired(j.Name) {
					state = "retired"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\n", j.Name, state, len(j.Steps))
			}
			return tw.Flush()
		},
	}
}
