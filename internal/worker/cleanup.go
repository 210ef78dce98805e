package worker

import (
	"os"

	"github.com/mtomcal/swarm-sub001/internal/store"
)

// removeLogArtifacts deletes a worker's direct-backend log file and, if
// present, its retained-stdin fifo. Missing files are not an error: a
// session-backend worker has neither.
func removeLogArtifacts(stateDir, name string) {
	logPath := store.WorkerLogPath(stateDir, name)
	_ = os.Remove(logPath)
	_ = os.Remove(logPath + ".stdin")
}
