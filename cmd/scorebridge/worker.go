package main

import (
	"os"

	"github.com/aretw0/scorebridge/internal/cli"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run the scoring worker on stdin/stdout",
	Long:   `Speaks the JSON-lines worker protocol on stdin/stdout. Started by the bridge; not meant to be run by hand.`,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg, os.Stderr)
		if err != nil {
			return err
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		logger.Debug("worker started", "pid", os.Getpid())
		return cli.ServeWorker(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
