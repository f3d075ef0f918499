package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"csbot/internal/bot/botstats"
	"csbot/internal/cache"
	"csbot/internal/locale"
	"csbot/internal/steamid"
)

func formatServerStats(loc *locale.Locale, stats cache.GameStats) string {
	var b strings.Builder
	b.WriteString("*" + loc.Get("stats.server.title") + "*\n\n")
	fmt.Fprintf(&b, "%s\n", loc.Getf("stats.server.players", stats.OnlinePlayers))
	fmt.Fprintf(&b, "%s\n", loc.Getf("stats.server.servers", stats.OnlineServers))
	fmt.Fprintf(&b, "%s\n", loc.Getf("stats.server.webapi", statusLabel(loc, stats.WebAPIStatus)))

	if len(stats.Services) > 0 {
		b.WriteString("\n" + loc.Get("stats.server.services") + "\n")
		names := make([]string, 0, len(stats.Services))
		for name := range stats.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "• %s: %s\n", name, statusLabel(loc, stats.Services[name]))
		}
	}

	b.WriteString("\n" + formatUpdatedAt(loc, stats.UpdatedAt))
	return b.String()
}

func formatMatchmaking(loc *locale.Locale, stats cache.GameStats) string {
	var b strings.Builder
	b.WriteString("*" + loc.Get("stats.mm.title") + "*\n\n")
	fmt.Fprintf(&b, "%s\n", loc.Getf("stats.mm.searching", stats.SearchingPlayers))
	fmt.Fprintf(&b, "%s\n", loc.Getf("stats.mm.avg_search", stats.AverageSearchSeconds))
	if stats.GameVersion != "" {
		version := stats.GameVersion
		if stats.VersionTimestamp > 0 {
			version += " (" + time.Unix(stats.VersionTimestamp, 0).UTC().Format("2006-01-02") + ")"
		}
		fmt.Fprintf(&b, "%s\n", loc.Getf("stats.mm.version", version))
	}
	b.WriteString("\n" + formatUpdatedAt(loc, stats.UpdatedAt))
	return b.String()
}

func formatSteamID(loc *locale.Locale, id steamid.ID) string {
	var b strings.Builder
	b.WriteString("*" + loc.Get("profile.result") + "*\n\n")
	fmt.Fprintf(&b, "SteamID64: `%s`\n", id.ID64())
	fmt.Fprintf(&b, "SteamID: `%s`\n", id.Steam2())
	fmt.Fprintf(&b, "SteamID3: `%s`\n", id.Steam3())
	fmt.Fprintf(&b, "[%s](%s)", loc.Get("profile.link"), id.ProfileURL())
	return b.String()
}

func statusLabel(loc *locale.Locale, status string) string {
	switch status {
	case "normal":
		return loc.Get("status.normal")
	case "degraded", "delayed":
		return loc.Get("status.degraded")
	case "":
		return loc.Get("status.unknown")
	}
	return status
}

func formatUpdatedAt(loc *locale.Locale, at time.Time) string {
	if at.IsZero() {
		return loc.Get("status.unknown")
	}
	return loc.Getf("stats.updated", at.UTC().Format("2006-01-02 15:04:05"))
}

// formatReport is operator-facing and intentionally not localized.
func formatReport(r botstats.Report, resident int) string {
	var b strings.Builder
	b.WriteString("usage report\n")
	fmt.Fprintf(&b, "callbacks handled: %d\n", r.Callbacks)
	fmt.Fprintf(&b, "inline queries: %d\n", r.InlineQueries)
	fmt.Fprintf(&b, "exceptions: %d\n", r.Exceptions)
	fmt.Fprintf(&b, "unique users: %d\n", r.UniqueUsers)
	fmt.Fprintf(&b, "resident sessions: %d", resident)
	return b.String()
}
