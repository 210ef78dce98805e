package main

import (
	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/workflow"
)

var workflowCancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Cancel an active workflow run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := workflow.New(GetStateDir(), cfg.MonitorPollInterval, cfg.KillGrace, cfg.TmuxCommand)
		return e.Cancel(args[0])
	},
}

func init() {
	workflowCmd.AddCommand(workflowCancelCmd)
}
