package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/recovery"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the service and block until SIGINT or SIGTERM",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.SetComponentLevels(cfg.Logging.Components); err != nil {
		return err
	}
	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	svc, err := recovery.New(cfg, recovery.WithLogger(log))
	if err != nil {
		return err
	}
	for _, c := range svc.Components() {
		log.Debug("component configured", logger.Fields(logger.FieldComponent, c.Name()))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return svc.Run(ctx)
}
