package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtomcal/swarm-sub001/internal/store"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
)

var workflowLogsCmd = &cobra.Command{
	Use:   "logs <name> <stage>",
	Short: "Print a workflow stage's captured output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, stage := args[0], args[1]
		dir := store.WorkflowLogDir(GetStateDir(), name)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return swarmerr.Newf(swarmerr.NotFound, "no logs for workflow %q", name)
		}

		var matches []string
		prefix := stage + "-"
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".log") {
				matches = append(matches, entry.Name())
			}
		}
		if len(matches) == 0 {
			return swarmerr.Newf(swarmerr.NotFound, "no logs for stage %q in workflow %q", stage, name)
		}
		sort.Strings(matches)
		latest := matches[len(matches)-1]

		data, err := os.ReadFile(filepath.Join(dir, latest))
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	workflowCmd.AddCommand(workflowLogsCmd)
}
