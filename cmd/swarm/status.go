package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/worker"
)

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Report a worker's running/stopped/not-found state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := newSupervisor()
		status, err := sup.Status(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(status)
		switch status {
		case worker.StatusRunning:
			os.Exit(0)
		case worker.StatusStopped:
			os.Exit(1)
		default:
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
