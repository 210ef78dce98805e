package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/store"
)

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known workflows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		parent := store.WorkflowDir(GetStateDir(), "")
		entries, err := os.ReadDir(parent)
		if os.IsNotExist(err) {
			fmt.Println("no workflows")
			return nil
		}
		if err != nil {
			return err
		}

		var states []*store.WorkflowState
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			ws, err := store.LoadWorkflowState(GetStateDir(), entry.Name())
			if err != nil || ws == nil {
				continue
			}
			states = append(states, ws)
		}

		if GetOutput() == "json" {
			return renderJSON(states)
		}
		if len(states) == 0 {
			fmt.Println("no workflows")
			return nil
		}
		fmt.Printf("%-20s %-12s %s\n", "NAME", "STATUS", "CURRENT STAGE")
		for _, ws := range states {
			fmt.Printf("%-20s %-12s %d\n", ws.Name, ws.Status, ws.CurrentStage)
		}
		return nil
	},
}

func init() {
	workflowCmd.AddCommand(workflowListCmd)
}
