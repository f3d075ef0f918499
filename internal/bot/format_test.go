package bot

import (
	"strings"
	"testing"
	"time"

	"csbot/internal/bot/botstats"
	"csbot/internal/cache"
	"csbot/internal/steamid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatServerStatsListsServicesSorted(t *testing.T) {
	cl := newTestClient(t)
	loc := cl.locales.Locale("en")

	text := formatServerStats(loc, cache.GameStats{
		OnlinePlayers: 1200000,
		OnlineServers: 250000,
		WebAPIStatus:  "normal",
		Services: map[string]string{
			"sessions": "normal",
			"leaderboards": "delayed",
			"community": "normal",
		},
		UpdatedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, text, "1200000")
	assert.Contains(t, text, "250000")
	assert.Contains(t, text, "2026-08-31 12:00:00")
	community := strings.Index(text, "community")
	leaderboards := strings.Index(text, "leaderboards")
	sessions := strings.Index(text, "sessions")
	assert.True(t, community < leaderboards && leaderboards < sessions,
		"services must render in a stable sorted order")
}

func TestFormatSteamIDShowsEveryRepresentation(t *testing.T) {
	cl := newTestClient(t)
	loc := cl.locales.Locale("en")

	id, err := steamid.Parse("76561197960287930")
	require.NoError(t, err)

	text := formatSteamID(loc, id)
	assert.Contains(t, text, "76561197960287930")
	assert.Contains(t, text, "STEAM_1:0:11101")
	assert.Contains(t, text, "[U:1:22202]")
	assert.Contains(t, text, "steamcommunity.com/profiles/76561197960287930")
}

func TestFormatReport(t *testing.T) {
	text := formatReport(botstats.Report{
		Callbacks:     10,
		InlineQueries: 2,
		Exceptions:    1,
		UniqueUsers:   5,
	}, 3)

	assert.Contains(t, text, "callbacks handled: 10")
	assert.Contains(t, text, "inline queries: 2")
	assert.Contains(t, text, "exceptions: 1")
	assert.Contains(t, text, "unique users: 5")
	assert.Contains(t, text, "resident sessions: 3")
}
