package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/beehive/internal/persistence"
)

func TestRunClosesJournal(t *testing.T) {
	examples := []struct {
		Name      string
		Args      []string
		Fails     bool
		FinalTick int64
	}{
		{Name: "headless run", Args: []string{"--ticks", "120"}, FinalTick: 120},
		{Name: "bad recording flag", Args: []string{"--record-every", "0"}, Fails: true},
	}
	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "runs", "journal.db")
			args := []string{"beesim", "--log-level", "error", "run", "--db", path,
				"--record", filepath.Join(dir, "run.jsonl.zst")}
			args = append(args, ex.Args...)

			err := makeapp().Run(args)
			if ex.Fails {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			db, err := persistence.Open(path)
			require.NoError(t, err)
			defer db.Close()
			runs, err := db.Runs()
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.True(t, runs[0].EndedAt.Valid)
			assert.Equal(t, ex.FinalTick, runs[0].FinalTick)
		})
	}
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug"))
	assert.Error(t, setupLogging("loud"))
	require.NoError(t, setupLogging("info"))
}
