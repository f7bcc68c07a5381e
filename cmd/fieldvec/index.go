package main

import (
	"fmt"
	"strings"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func NewIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the per-type codebook",
		Long:  `Build or inspect the Annoy indices that map vectors back to field values.`,
	}

	cmd.AddCommand(
		newIndexBuildCmd(a),
		newIndexStatusCmd(a),
	)

	return cmd
}

func newIndexBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the codebook from a trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, _ := cmd.Flags().GetString("data")
			trees, _ := cmd.Flags().GetInt("trees")
			quiet, _ := cmd.Flags().GetBool("quiet")
			asJSON, _ := cmd.Flags().GetBool("json")

			input := internal.BuildCodebookInput{DataPath: data, Trees: trees}
			if !quiet && !asJSON {
				input.Progress = newGroupProgress(cmd)
			}

			out, err := a.uc.BuildCodebook.Execute(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("build index: %w", err)
			}
			defer out.Codebook.Close()

			return printCodebook(cmd, out, asJSON)
		},
	}

	cmd.Flags().String("data", "", "Trace file (.csv or .parquet)")
	cmd.Flags().Int("trees", 0, "Number of trees per index (default from config)")
	cmd.Flags().BoolP("quiet", "q", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newIndexStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved codebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			out, err := a.uc.Status.Execute(cmd.Context())
			if err != nil {
				return fmt.Errorf("index status: %w", err)
			}

			return printCodebook(cmd, out, asJSON)
		},
	}
}

// newGroupProgress renders one bar per type group on stderr.
func newGroupProgress(cmd *cobra.Command) internal.ProgressFunc {
	var (
		bar     *progressbar.ProgressBar
		current internal.FieldType
	)

	return func(t internal.FieldType, done, total int) {
		if bar == nil || t != current {
			current = t
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Indexing %s[reset]", t)),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}
		_ = bar.Set(done)
	}
}

func printCodebook(cmd *cobra.Command, out *internal.CodebookOutput, asJSON bool) error {
	if asJSON {
		groups := make([]map[string]any, 0, len(out.Groups))
		for _, g := range out.Groups {
			groups = append(groups, map[string]any{
				"type":    g.Type,
				"columns": g.Columns,
				"tokens":  g.Tokens,
				"trees":   g.Trees,
			})
		}
		return outputJSON(cmd, map[string]any{
			"dir":       out.Dir,
			"dimension": out.Dimension,
			"groups":    groups,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Codebook at %s (dimension %d)\n", out.Dir, out.Dimension)
	for _, g := range out.Groups {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %6d tokens  %4d trees  %s\n",
			g.Type, g.Tokens, g.Trees, strings.Join(g.Columns, ","))
	}
	return nil
}
