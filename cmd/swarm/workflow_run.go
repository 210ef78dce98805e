package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/workflow"
)

var (
	runAt    string
	runIn    time.Duration
	runForce bool
)

var workflowRunCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a workflow to completion (blocking)",
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
		return e.Run(context.Background(), doc, workflow.RunOptions{At: runAt, In: runIn, Force: runForce})
	},
}

func init() {
	workflowRunCmd.Flags().StringVar(&runAt, "at", "", "schedule the run at local time HH:MM")
	workflowRunCmd.Flags().DurationVar(&runIn, "in", 0, "schedule the run after a duration")
	workflowRunCmd.Flags().BoolVar(&runForce, "force", false, "cancel and replace an existing active run of the same name")
	workflowCmd.AddCommand(workflowRunCmd)
}
