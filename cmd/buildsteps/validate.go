package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systemstart/buildsteps/pkg/api"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest and print every problem found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.manifestPath()
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading manifest file: %w", err)
			}

			out := cmd.OutOrStdout()
			if issues := api.Validate(data); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(out, "%s: %s\n", path, issue)
				}
				return &api.ManifestError{File: path, Issues: issues}
			}

			m, err := api.ParseManifest(data)
			if err != nil {
				return err
			}
			retired := 0
			for _, j := range m.Jobs {
				if j.Retired {
					retired++
				}
			}
			fmt.Fprintf(out, "%s: ok, %d jobs (%d retired)\n", path, len(m.Jobs), retired)
			return nil
		},
	}
}
