package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/backend"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
	"github.com/mtomcal/swarm-sub001/internal/worker"
)

var (
	spawnEnv       []string
	spawnTags      []string
	spawnCwd       string
	spawnSession   bool
	spawnKeepStdin bool
	spawnWaitReady bool
	spawnReadyTO   time.Duration
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <name> -- <command> [args...]",
	Short: "Start a new worker",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		argv := args[1:]

		env, err := parseKV(spawnEnv)
		if err != nil {
			return err
		}

		if GetDryRun() {
			fmt.Printf("would spawn %q running %q\n", name, strings.Join(argv, " "))
			return nil
		}

		kind := backend.Direct
		if spawnSession {
			kind = backend.Session
		}

		sup := newSupervisor()
		rec, err := sup.Spawn(context.Background(), worker.SpawnOptions{
			Name:          name,
			Argv:          argv,
			Env:           env,
			Cwd:           spawnCwd,
			Tags:          spawnTags,
			Backend:       kind,
			KeepStdin:     spawnKeepStdin,
			ReadyWait:     spawnWaitReady,
			ReadyTimeout:  spawnReadyTO,
			ReadyInterval: cfg.ReadyPollInterval,
		})
		if err != nil {
			return err
		}
		return printWorker(*rec, GetOutput())
	},
}

func init() {
	spawnCmd.Flags().StringArrayVar(&spawnEnv, "env", nil, "environment variable KEY=VALUE (repeatable)")
	spawnCmd.Flags().StringArrayVar(&spawnTags, "tag", nil, "tag to attach (repeatable)")
	spawnCmd.Flags().StringVar(&spawnCwd, "cwd", "", "working directory")
	spawnCmd.Flags().BoolVar(&spawnSession, "session", false, "run inside a detached tmux session instead of a direct child")
	spawnCmd.Flags().BoolVar(&spawnKeepStdin, "stdin", false, "retain an open stdin so `send` can deliver input later")
	spawnCmd.Flags().BoolVar(&spawnWaitReady, "wait-ready", false, "block until a readiness pattern matches, or timeout")
	spawnCmd.Flags().DurationVar(&spawnReadyTO, "ready-timeout", 30*time.Second, "readiness wait timeout")
	rootCmd.AddCommand(spawnCmd)
}

func parseKV(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, swarmerr.Field("env", fmt.Sprintf("invalid KEY=VALUE pair %q", p))
		}
		out[k] = v
	}
	return out, nil
}
