package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumekit/plume/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.APIKey != "" {
			cfg.APIKey = "(set)"
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		dir, err := config.GetConfigDir()
		if err == nil {
			fmt.Printf("# config dir: %s\n", dir)
		}
		fmt.Print(out)
		return nil
	},
}
