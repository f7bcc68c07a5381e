package main

import (
	"fmt"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/spf13/cobra"
)

func NewTrainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the field embedding model",
		Long: `Train word2vec over the configured columns of a CSV or Parquet trace.
A cached model with the same name and dimension is reused unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, _ := cmd.Flags().GetString("data")
			force, _ := cmd.Flags().GetBool("force")
			asJSON, _ := cmd.Flags().GetBool("json")

			out, err := a.uc.Train.Execute(cmd.Context(), internal.TrainModelInput{
				DataPath: data, Force: force,
			})
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}

			if asJSON {
				return outputJSON(cmd, map[string]any{
					"model":      out.ModelPath,
					"cached":     out.Cached,
					"vocabulary": out.Vocabulary,
					"dimension":  out.Dimension,
				})
			}

			state := "trained"
			if out.Cached {
				state = "cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s (%s): %d words, dimension %d\n",
				out.ModelPath, state, out.Vocabulary, out.Dimension)
			return nil
		},
	}

	cmd.Flags().String("data", "", "Trace file (.csv or .parquet)")
	cmd.Flags().Bool("force", false, "Retrain even if a cached model exists")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
