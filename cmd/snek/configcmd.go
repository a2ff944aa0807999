package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snek-arena/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default snek.yaml",
	Long: `Print the built-in configuration. Save it as ~/.snek/snek.yaml or
./configs/snek.yaml and edit the keys you want to change.

Examples:
  snek config > ~/.snek/snek.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeDefaults(cmd.OutOrStdout())
	},
}

func writeDefaults(w io.Writer) error {
	_, err := w.Write(config.DefaultYAML())
	return err
}
