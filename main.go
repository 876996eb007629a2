// Package main is the entry point for the authgate CLI
package main

import (
	"github.com/simpleg-eu/cp-core/cmd"
	"github.com/simpleg-eu/cp-core/internal/config"
	"github.com/simpleg-eu/cp-core/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	cmd.Execute(cfg)
}
