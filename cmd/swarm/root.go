package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/config"
	"github.com/mtomcal/swarm-sub001/internal/diag"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
	"github.com/mtomcal/swarm-sub001/internal/worker"
)

var (
	dryRun     bool
	verbose    bool
	output     string
	cfgFile    string
	stateDirFl string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Local worker-fleet orchestrator",
	Long: `swarm spawns, tracks, inspects, signals, and recycles long-lived
child processes — optionally inside tmux sessions — and drives
multi-stage workflows over them.

Worker lifecycle:
  spawn     Start a new worker
  status    Report a worker's running/stopped/not-found state
  ls        List workers
  send      Deliver input to a running worker
  logs      Print a worker's captured output
  kill      Signal a worker to stop
  respawn   Re-run a stopped worker with its original configuration
  clean     Remove a worker's record and log artifacts

Workflows:
  workflow validate   Check a workflow document
  workflow run        Run a workflow to completion (blocking)
  workflow status     Report a workflow's runtime state
  workflow cancel      Cancel an active workflow run
  workflow resume      Resume a cancelled/failed workflow
  workflow logs        Print a workflow stage's captured output
  workflow list        List known workflows`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		overrides := &config.Config{Output: output, Verbose: verbose}
		if stateDirFl != "" {
			overrides.StateDir = stateDirFl
		}
		cfg = config.Load(overrides)
		diag.SetVerbose(cfg.Verbose)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if e, ok := swarmerr.As(err); ok {
			if e.Field != "" {
				fmt.Fprintf(os.Stderr, "error: %s (%s)\n", e.Msg, e.Field)
			} else {
				fmt.Fprintf(os.Stderr, "error: %s\n", e.Msg)
			}
			os.Exit(e.Kind.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose diagnostic output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (table or json; any other value renders as table)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (not read; settings always come from ~/.swarmrc.yaml and ./.swarm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateDirFl, "state-dir", "", "state directory root (default: ~/.swarm)")
}

func GetDryRun() bool { return dryRun }

func GetVerbose() bool { return verbose }

func GetOutput() string {
	if cfg == nil {
		return "table"
	}
	if cfg.Output == "" {
		return "table"
	}
	return cfg.Output
}

func GetStateDir() string {
	if cfg == nil {
		return config.Default().StateDir
	}
	return cfg.StateDir
}

// newSupervisor builds a Supervisor bound to the resolved state dir and
// tmux binary (config precedence chain's TmuxCommand setting).
func newSupervisor() *worker.Supervisor {
	sup := worker.New(GetStateDir())
	if cfg != nil {
		sup.TmuxCommand = cfg.TmuxCommand
	}
	return sup
}

func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}
