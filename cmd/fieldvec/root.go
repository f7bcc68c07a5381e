package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fieldvec",
		Short: "Embed categorical trace fields and decode them back",
		Long: `Train word2vec embeddings over the categorical fields of network traces,
index them per field type and map generated vectors back to real values.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	if a != nil {
		rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return a.configure(configPath)
		}
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file (default .fieldvec/config.yaml)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

func addSubcommands(root *cobra.Command, a *app) {
	root.AddCommand(
		NewInitCmd(a),
		NewTrainCmd(a),
		NewIndexCmd(a),
		NewEncodeCmd(a),
		NewDecodeCmd(a),
		NewNormalizeCmd(a),
		NewWatchCmd(a),
	)
}

func outputJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
