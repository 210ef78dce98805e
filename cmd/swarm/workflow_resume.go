package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/workflow"
)

var workflowResumeCmd = &cobra.Command{
	Use:   "resume <file>",
	Short: "Resume a cancelled/failed workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := workflow.Parse(data)
		if err != nil {
			return err
		}

		e := workflow.New(GetStateDir(), cfg.MonitorPollInterval, cfg.KillGrace, cfg.TmuxCommand)
		return e.Resume(context.Background(), doc, doc.Name)
	},
}

func init() {
	workflowCmd.AddCommand(workflowResumeCmd)
}
