package collectors

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	"csbot/core/logger"
	"csbot/internal/cache"
	"log/slog"
)

// Runner periodically polls Steam and merges the results into the cache.
type Runner struct {
	steam    *SteamClient
	cache    *cache.Cache
	interval time.Duration
}

// NewRunner wires a poll loop. interval <= 0 defaults to 45s.
func NewRunner(steam *SteamClient, c *cache.Cache, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &Runner{steam: steam, cache: c, interval: interval}
}

// Run blocks until ctx is cancelled, polling once immediately and then on
// every tick. Individual poll failures are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	start := time.Now()
	var errs *multierror.Error

	players, err := r.steam.CurrentPlayers(ctx)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	servers, err := r.steam.GameServers(ctx)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	if players > 0 || servers != nil {
		webAPI := "normal"
		if errs.ErrorOrNil() != nil {
			webAPI = "degraded"
		}
		if err := r.cache.Update(func(s *cache.GameStats) {
			s.WebAPIStatus = webAPI
			if players > 0 {
				s.OnlinePlayers = players
			}
			if servers != nil {
				s.OnlineServers = servers.OnlineServers
				s.SearchingPlayers = servers.SearchingPlayers
				s.AverageSearchSeconds = servers.SearchSecondsAvg
				s.Services = servers.Services
				if servers.Version != "" {
					s.GameVersion = servers.Version
					s.VersionTimestamp = servers.VersionTimestamp
				}
			}
		}); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		logger.Collect.Warn("poll incomplete",
			slog.String("event", "poll"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return
	}
	logger.Collect.Debug("poll complete",
		slog.String("event", "poll"),
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)
}
