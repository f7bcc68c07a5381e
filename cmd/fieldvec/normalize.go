package main

import (
	"fmt"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/spf13/cobra"
)

func NewNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <source-dir>",
		Short: "Copy raw traces into the canonical directory",
		Long: `Copy every included trace file below source-dir into .fieldvec/canonical,
flattening nested paths. Files matched by .fieldvecignore are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			out, err := a.uc.Normalize.Execute(cmd.Context(), internal.NormalizeInput{Source: args[0]})
			if err != nil {
				return err
			}

			if asJSON {
				return outputJSON(cmd, map[string]any{"dir": out.Dir, "files": out.Files})
			}

			for _, name := range out.Files {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Normalized %d files into %s\n", len(out.Files), out.Dir)
			return nil
		},
	}
}
