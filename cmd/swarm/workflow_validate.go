package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/workflow"
)

var workflowValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a workflow document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := workflow.Parse(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			os.Exit(1)
		}
		if err := workflow.Validate(doc); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("%q is valid\n", doc.Name)
		return nil
	},
}

func init() {
	workflowCmd.AddCommand(workflowValidateCmd)
}
