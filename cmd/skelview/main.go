// skelview shows a skeleton scene file and reloads it on change.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/config"
	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/internal/viewer"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg)
	if err != nil {
		logger.Error("viewer error", zap.Error(err))
	}
	logger.Sync()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger.Info("=== skelview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create viewer: %w", err)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		return err
	}

	logger.Info("viewer closed normally")
	return nil
}
