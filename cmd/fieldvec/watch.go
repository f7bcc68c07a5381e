package main

import (
	"context"
	"fmt"
	"time"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/spf13/cobra"
)

func NewWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the codebook whenever the model changes",
		Long: `Watch the trained model file and rebuild the codebook from --data each
time it is rewritten, for example by "fieldvec train --force".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, _ := cmd.Flags().GetString("data")
			debounce, _ := cmd.Flags().GetDuration("debounce")

			ws := a.resolver.Resolve()
			if !ws.Exists() {
				return fmt.Errorf("not initialized: %s", ws.Dir)
			}
			cfg, err := internal.LoadConfig(a.resolver.ConfigPath(ws))
			if err != nil {
				return err
			}

			model := internal.ModelPath(ws.ModelDir(), cfg.Embedding.ModelName, cfg.Embedding.Dimension)
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", model)

			return internal.WatchModel(cmd.Context(), model, debounce, a.log, func(ctx context.Context) error {
				out, err := a.uc.BuildCodebook.Execute(ctx, internal.BuildCodebookInput{DataPath: data})
				if err != nil {
					return err
				}
				// the saved files are what decode reads, this copy is not needed
				if err := out.Codebook.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt codebook with %d type groups\n", len(out.Groups))
				return nil
			})
		},
	}

	cmd.Flags().String("data", "", "Trace file (.csv or .parquet)")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for model rewrites")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
