package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	c := New(path)

	err := c.Update(func(s *GameStats) {
		s.OnlinePlayers = 1200345
		s.GameVersion = "1.40.4.4"
	})
	require.NoError(t, err)

	snap, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 1200345, snap.OnlinePlayers)
	assert.Equal(t, "1.40.4.4", snap.GameVersion)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestReadMissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent.json"))
	snap, err := c.Read()
	require.NoError(t, err)
	assert.Zero(t, snap.OnlinePlayers)
}

func TestReadPicksUpExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	c := New(path)

	require.NoError(t, c.Update(func(s *GameStats) { s.OnlinePlayers = 1 }))
	first, err := c.Read()
	require.NoError(t, err)
	require.Equal(t, 1, first.OnlinePlayers)

	// Another process rewrites the file with a newer mtime.
	raw := []byte(`{"online_players": 42}`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	second, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 42, second.OnlinePlayers)
}

func TestUpdateMergesDiskState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	c := New(path)

	require.NoError(t, c.Update(func(s *GameStats) { s.OnlinePlayers = 7 }))
	require.NoError(t, c.Update(func(s *GameStats) { s.GameVersion = "1.41.0.0" }))

	snap, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 7, snap.OnlinePlayers)
	assert.Equal(t, "1.41.0.0", snap.GameVersion)
}
