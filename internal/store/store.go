// Package store implements spec.md §4.1's State Store: atomic JSON
// persistence for the worker registry and per-workflow state documents,
// with corruption recovery.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mtomcal/swarm-sub001/internal/diag"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
)

// Load reads a JSON document from path into dst.
//
//   - If the file is absent, dst is left untouched (the caller should have
//     populated it with its default value) and Load returns nil.
//   - If the file exists but fails to parse, it is renamed to
//     "<name>.corrupted", a warning is emitted on the diagnostic channel,
//     and Load returns nil (the caller's default stands).
//   - Any other read error is surfaced as TransientIO.
func Load(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return swarmerr.Wrap(swarmerr.TransientIO, err, fmt.Sprintf("read %s", path))
	}

	if err := json.Unmarshal(data, dst); err != nil {
		corruptPath := path + ".corrupted"
		if renameErr := os.Rename(path, corruptPath); renameErr != nil {
			return swarmerr.Wrap(swarmerr.CorruptState, err, fmt.Sprintf("unparseable state %s, and backup failed: %v", path, renameErr))
		}
		diag.Warn("corrupt state file", map[string]any{
			"path":         path,
			"backup":       corruptPath,
			"parse_error":  err.Error(),
		})
		return nil
	}
	return nil
}

// Save atomically persists doc to path: write-to-temp, fsync, rename.
// At no observable moment is the destination file truncated or partially
// written (spec.md §8 invariant).
func Save(path string, doc any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return swarmerr.Wrap(swarmerr.TransientIO, err, fmt.Sprintf("create directory %s", dir))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return swarmerr.Wrap(swarmerr.InvalidInput, err, "marshal state document")
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return swarmerr.Wrap(swarmerr.TransientIO, err, "create temp file")
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return swarmerr.Wrap(swarmerr.TransientIO, err, "write state document")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return swarmerr.Wrap(swarmerr.TransientIO, err, "sync state document")
	}
	if err := tmp.Close(); err != nil {
		return swarmerr.Wrap(swarmerr.TransientIO, err, "close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return swarmerr.Wrap(swarmerr.TransientIO, err, "rename to final path")
	}

	success = true
	return nil
}
