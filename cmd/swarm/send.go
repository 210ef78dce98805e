package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <name> <payload...>",
	Short: "Deliver input to a running worker",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		payload := strings.Join(args[1:], " ")
		sup := newSupervisor()
		return sup.Send(context.Background(), name, payload)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
