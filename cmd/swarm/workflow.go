package main

import (
	"github.com/spf13/cobra"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Multi-stage workflow operations",
}

func init() {
	rootCmd.AddCommand(workflowCmd)
}
