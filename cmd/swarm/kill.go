package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/backend"
)

var killGraceFlag time.Duration

var killCmd = &cobra.Command{
	Use:   "kill <name>",
	Short: "Signal a worker to stop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if GetDryRun() {
			fmt.Printf("would kill %q\n", name)
			return nil
		}
		grace := killGraceFlag
		if grace <= 0 {
			grace = cfg.KillGrace
		}
		sup := newSupervisor()
		return sup.Kill(context.Background(), name, backend.StartOptions{KillGrace: grace})
	},
}

func init() {
	killCmd.Flags().DurationVar(&killGraceFlag, "grace", 0, "delay between TERM and KILL (default: config kill_grace)")
	rootCmd.AddCommand(killCmd)
}
