package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/spf13/cobra"
)

func NewDecodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <vector>...",
		Short: "Map vectors back to field values",
		Long: `Return the nearest known value of the given type for each vector.
Vectors are JSON arrays, given as arguments or as one JSON array of arrays
in the file named by --file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fieldType, _ := cmd.Flags().GetString("type")
			file, _ := cmd.Flags().GetString("file")
			asJSON, _ := cmd.Flags().GetBool("json")

			vecs, err := readVectors(args, file)
			if err != nil {
				return err
			}

			out, err := a.uc.Decode.Execute(cmd.Context(), internal.DecodeInput{
				Type: fieldType, Vectors: vecs,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return outputJSON(cmd, out.Tokens)
			}
			for _, tok := range out.Tokens {
				fmt.Fprintln(cmd.OutOrStdout(), tok)
			}
			return nil
		},
	}

	cmd.Flags().StringP("type", "t", "", "Field type of the vectors (ip, port, proto, ...)")
	cmd.Flags().StringP("file", "f", "", "JSON file holding an array of vectors")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func readVectors(args []string, file string) ([][]float32, error) {
	var vecs [][]float32

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read vectors: %w", err)
		}
		if err := json.Unmarshal(data, &vecs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}

	for i, arg := range args {
		var vec []float32
		if err := json.Unmarshal([]byte(arg), &vec); err != nil {
			return nil, fmt.Errorf("parse vector %d: %w", i, err)
		}
		vecs = append(vecs, vec)
	}

	if len(vecs) == 0 {
		return nil, fmt.Errorf("no vectors given")
	}
	return vecs, nil
}
