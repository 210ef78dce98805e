package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/backend"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <name>",
	Short: "Remove a worker's record and log artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if GetDryRun() {
			fmt.Printf("would clean %q\n", name)
			return nil
		}
		sup := newSupervisor()
		return sup.Clean(context.Background(), name, backend.StartOptions{KillGrace: cfg.KillGrace})
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
