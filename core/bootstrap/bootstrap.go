// Package bootstrap assembles the application: configuration, logging,
// database, collectors and the Telegram client.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	coreconfig "csbot/core/config"
	"csbot/core/database"
	"csbot/core/logger"
	"csbot/core/telegram"
	"csbot/internal/bot"
	"csbot/internal/bot/session"
	"csbot/internal/cache"
	"csbot/internal/collectors"
	"csbot/internal/locale"
	"csbot/internal/userdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Run boots the whole application and blocks until ctx is cancelled or a
// fatal error occurs.
func Run(ctx context.Context) error {
	// A missing .env is not an error; configuration also comes from the
	// YAML file and real environment variables.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("bootstrap: load config: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("bootstrap: init logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	var dbCfg database.Config
	if err := envconfig.Process("", &dbCfg); err != nil {
		return fmt.Errorf("bootstrap: db config: %w", err)
	}
	if err := database.RunMigrations(dbCfg); err != nil {
		return err
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	locales, err := locale.NewResolver(cfg.Locale.Dir, cfg.Locale.DefaultLang)
	if err != nil {
		return fmt.Errorf("bootstrap: locales: %w", err)
	}

	stats := cache.New(cfg.Cache.Path)

	steam := collectors.NewSteamClient(telegram.BuildHTTPClient(), cfg.Steam.APIKey, cfg.Steam.AppID)
	runner := collectors.NewRunner(steam, stats, time.Duration(cfg.Steam.PollIntervalSeconds)*time.Second)
	go runner.Run(ctx)

	sessions := session.NewStore(userdata.New(db), locales, cfg.SessionLifetime(), bot.MainMenuID)

	client := bot.New(cfg, sessions, locales, stats)
	go client.RunBackground(ctx)

	return telegram.Run(ctx, telegram.RunOptions{
		Config:      cfg,
		Middlewares: telegram.DefaultMiddlewares(cfg, nil),
		Routes:      client.Routes(),
		Commands:    client.CommandList(),
		OnStart:     client.OnStart,
		OnStop:      client.OnStop,
	})
}
