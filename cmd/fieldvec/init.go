package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		Long:  `Create a .fieldvec directory with a default configuration in the working directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.uc.Init.Execute(cmd.Context())
			if err != nil {
				return err
			}

			if !out.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "Workspace already initialized at %s\n", out.Dir)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized workspace at %s\n", out.Dir)
			return nil
		},
	}
}
