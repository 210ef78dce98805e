package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	reg := &Registry{Workers: []WorkerRecord{
		{Name: "w1", Status: "running", Cmd: []string{"sleep", "300"}},
	}}
	require.NoError(t, Save(path, reg))

	var loaded Registry
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, reg.Workers, loaded.Workers)
}

func TestLoadAbsentReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.json")

	dst := &Registry{Workers: []WorkerRecord{}}
	err := Load(path, dst)
	require.NoError(t, err)
	assert.Empty(t, dst.Workers)
}

func TestLoadCorruptRenamesAndWarns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{invalid json}}"), 0o644))

	dst := &Registry{Workers: []WorkerRecord{}}
	err := Load(path, dst)
	require.NoError(t, err, "corruption is recovered, not surfaced")

	_, statErr := os.Stat(path + ".corrupted")
	assert.NoError(t, statErr, "corrupted file should be renamed aside")
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "original path should no longer exist")
}

func TestSaveAtomicNoPartialWrites(t *testing.T) {
	// The rename-based replace means a concurrent reader never observes a
	// truncated file: either the old complete content or the new complete
	// content, never a partial write. We approximate a check by verifying
	// no stray temp files survive a successful Save.
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, Save(path, &Registry{Workers: []WorkerRecord{{Name: "w"}}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, len(e.Name()) > 4 && e.Name()[:5] == ".tmp-", "leftover temp file: %s", e.Name())
	}
}

// TestSaveLoadRoundTripProperty exercises spec.md §8's round-trip invariant
// Load(Save(doc)) ≡ doc over arbitrary registries.
func TestSaveLoadRoundTripProperty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	rapid.Check(t, func(r *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(r, "n")
		workers := make([]WorkerRecord, 0, n)
		for i := 0; i < n; i++ {
			workers = append(workers, WorkerRecord{
				Name:   rapid.StringMatching(`[a-z][a-z0-9-]{0,12}`).Draw(r, "name"),
				Status: rapid.SampledFrom([]string{"running", "stopped"}).Draw(r, "status"),
				Cmd:    []string{rapid.StringMatching(`[a-z]{1,8}`).Draw(r, "cmd")},
				Cwd:    rapid.StringMatching(`/[a-z/]{0,10}`).Draw(r, "cwd"),
				Tags:   []string{},
				Env:    map[string]string{},
			})
		}
		reg := &Registry{Workers: workers}

		if err := Save(path, reg); err != nil {
			r.Fatalf("Save: %v", err)
		}
		var loaded Registry
		if err := Load(path, &loaded); err != nil {
			r.Fatalf("Load: %v", err)
		}
		if len(loaded.Workers) != len(reg.Workers) {
			r.Fatalf("round-trip mismatch: got %d workers, want %d", len(loaded.Workers), len(reg.Workers))
		}
		for i := range reg.Workers {
			if loaded.Workers[i].Name != reg.Workers[i].Name {
				r.Fatalf("round-trip name mismatch at %d: got %q want %q", i, loaded.Workers[i].Name, reg.Workers[i].Name)
			}
		}
	})
}
