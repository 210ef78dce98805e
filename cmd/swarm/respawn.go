package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var (
	respawnWaitReady bool
	respawnReadyTO   time.Duration
)

var respawnCmd = &cobra.Command{
	Use:   "respawn <name>",
	Short: "Re-run a stopped worker with its original configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := newSupervisor()
		rec, err := sup.Respawn(context.Background(), args[0], respawnWaitReady, respawnReadyTO)
		if err != nil {
			return err
		}
		return printWorker(*rec, GetOutput())
	},
}

func init() {
	respawnCmd.Flags().BoolVar(&respawnWaitReady, "wait-ready", false, "block until a readiness pattern matches, or timeout")
	respawnCmd.Flags().DurationVar(&respawnReadyTO, "ready-timeout", 30*time.Second, "readiness wait timeout")
	rootCmd.AddCommand(respawnCmd)
}
