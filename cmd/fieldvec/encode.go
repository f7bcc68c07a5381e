package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/spf13/cobra"
)

func NewEncodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <token>...",
		Short: "Print the unit vectors of field values",
		Long: `Print the normalized embedding of each value. Unseen integers use the
nearest integer value the model was trained on.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			out, err := a.uc.Encode.Execute(cmd.Context(), internal.EncodeInput{Tokens: args})
			if err != nil {
				return err
			}

			if asJSON {
				rows := make([]map[string]any, 0, len(out.Tokens))
				for _, t := range out.Tokens {
					row := map[string]any{"token": t.Token, "vector": t.Vector}
					if t.Substitute != "" {
						row["substitute"] = t.Substitute
					}
					rows = append(rows, row)
				}
				return outputJSON(cmd, rows)
			}

			for _, t := range out.Tokens {
				name := t.Token
				if t.Substitute != "" {
					name = fmt.Sprintf("%s(%s)", t.Token, t.Substitute)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, formatVector(t.Vector))
			}
			return nil
		},
	}
}

func formatVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, x := range vec {
		parts[i] = strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
