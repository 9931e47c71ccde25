package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "addrsplit",
	Short: "Multi-pipeline postal address resolution",
	Long:  "Splits free-text postal addresses into structured components through independent provider pipelines and enriches them with coordinates from an offline GeoNames index.",
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
