package cmd

import (
	"os"

	"github.com/simpleg-eu/cp-core/internal/config"
	"github.com/simpleg-eu/cp-core/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "authgate",
	Short:        "authgate CLI",
	Long:         `authgate validates bearer tokens against a remote JWKS`,
	SilenceUsage: true,
}

func Execute(c *config.Config) {
	cfg = c
	logger.Debug("Starting CLI", "env", cfg.AppEnv)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("CLI error", "error", err)
		os.Exit(1)
	}
}
