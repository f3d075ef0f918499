// Package cache holds the JSON snapshot of game statistics shared between
// the collectors (writers) and the bot handlers (readers).
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"csbot/core/logger"
	"log/slog"
)

// GameStats is the cached snapshot refreshed by the collectors.
type GameStats struct {
	OnlinePlayers        int               `json:"online_players"`
	OnlineServers        int               `json:"online_servers"`
	SearchingPlayers     int               `json:"searching_players"`
	AverageSearchSeconds int               `json:"average_search_seconds"`
	GameVersion          string            `json:"game_version"`
	VersionTimestamp     int64             `json:"version_timestamp"`
	WebAPIStatus         string            `json:"webapi_status"`
	Services             map[string]string `json:"services"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Cache reads and writes the snapshot file. Reads reload from disk when the
// file's mtime changes, so a separate collector process may share the file.
type Cache struct {
	path string

	mu       sync.Mutex
	data     GameStats
	loaded   bool
	diskTime time.Time
}

// New returns a cache bound to the given file path. The file may not exist
// yet; reads return an empty snapshot until the first write.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Read returns the current snapshot, reloading from disk if the file changed.
func (c *Cache) Read() (GameStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.data, nil
		}
		return c.data, fmt.Errorf("cache: stat %s: %w", c.path, err)
	}
	if c.loaded && !info.ModTime().After(c.diskTime) {
		return c.data, nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return c.data, fmt.Errorf("cache: read %s: %w", c.path, err)
	}
	var snap GameStats
	if err := json.Unmarshal(raw, &snap); err != nil {
		return c.data, fmt.Errorf("cache: parse %s: %w", c.path, err)
	}
	c.data = snap
	c.loaded = true
	c.diskTime = info.ModTime()
	logger.Debug(logger.Background(), "collect", "cache.reload",
		slog.String("path", c.path),
	)
	return c.data, nil
}

// Update applies fn to the current snapshot and writes the result back
// atomically (temp file + rename).
func (c *Cache) Update(fn func(*GameStats)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.data
	if raw, err := os.ReadFile(c.path); err == nil {
		// Prefer the on-disk state so concurrent writers do not clobber fields.
		_ = json.Unmarshal(raw, &snap)
	}

	fn(&snap)
	snap.UpdatedAt = time.Now().UTC()

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("cache: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: close: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: rename: %w", err)
	}

	c.data = snap
	c.loaded = true
	if info, err := os.Stat(c.path); err == nil {
		c.diskTime = info.ModTime()
	}
	return nil
}
