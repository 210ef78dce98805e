package main

import (
	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/workflow"
)

var workflowStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Report a workflow's runtime state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := workflow.New(GetStateDir(), cfg.MonitorPollInterval, cfg.KillGrace, cfg.TmuxCommand)
		ws, err := e.Status(args[0])
		if err != nil {
			return err
		}
		return printWorkflowState(ws, GetOutput())
	},
}

func init() {
	workflowCmd.AddCommand(workflowStatusCmd)
}
