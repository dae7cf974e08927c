// cmd/buttonfetch/run.go
package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/app"
	"github.com/tamzrod/buttonfetch/internal/config"
	"github.com/tamzrod/buttonfetch/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the device tasks until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		a, err := app.New(app.Options{
			Config:   cfg,
			SSID:     config.SSID,
			Password: config.Password,
			Out:      os.Stdout,
			Log:      log,
		})
		if err != nil {
			log.Error("build failed", zap.Error(err))
			return err
		}
		defer a.Close()

		ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	// bare "buttonfetch" runs the device
	rootCmd.RunE = runCmd.RunE
}
