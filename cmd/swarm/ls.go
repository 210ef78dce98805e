package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/worker"
)

var (
	lsTag    string
	lsStatus string
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := newSupervisor()
		workers, err := sup.List(context.Background(), worker.Filter{
			Tag:    lsTag,
			Status: worker.Status(lsStatus),
		})
		if err != nil {
			return err
		}
		return printWorkers(workers, GetOutput())
	},
}

func init() {
	lsCmd.Flags().StringVar(&lsTag, "tag", "", "filter by tag")
	lsCmd.Flags().StringVar(&lsStatus, "status", "", "filter by status (running, stopped)")
	rootCmd.AddCommand(lsCmd)
}
