package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homefront-tools/shelter-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shelter-cli",
	Short: "Find the nearest public shelters",
	Long:  "Aggregates shelter locations from municipal GIS layers, the national geocoding index and open map data, dedups across providers, and answers \"what shelter is near me\".",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
