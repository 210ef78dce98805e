package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GetOutput() == "json" {
			return renderJSON(cfg)
		}
		fmt.Printf("state_dir:             %s\n", cfg.StateDir)
		fmt.Printf("output:                %s\n", cfg.Output)
		fmt.Printf("verbose:               %t\n", cfg.Verbose)
		fmt.Printf("tmux_command:          %s\n", cfg.TmuxCommand)
		fmt.Printf("kill_grace:            %s\n", cfg.KillGrace)
		fmt.Printf("ready_poll_interval:   %s\n", cfg.ReadyPollInterval)
		fmt.Printf("monitor_poll_interval: %s\n", cfg.MonitorPollInterval)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
