package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/botgate/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write a default configuration file",
	RunE:  runConfig,
}

var configOutPath string

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&configOutPath, "out", "o", "botgate.yaml", "output path (.yaml or .json)")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configOutPath); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", configOutPath)
	return nil
}
