// Package userdata persists per-user conversation state between restarts.
package userdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"csbot/core/logger"
	"log/slog"
)

// Record mirrors one row of the users table.
type Record struct {
	ID             int64     `db:"id"`
	PlatformID     int64     `db:"platform_id"`
	CurrentMenuID  string    `db:"current_menu_id"`
	PreviousMenuID string    `db:"previous_menu_id"`
	Language       string    `db:"language"`
	LastBotPMID    int       `db:"last_bot_pm_id"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Store provides scoped access to the users table. Every call acquires and
// releases its own connection; callers must not hold a Store call across a
// wait on user input.
type Store struct {
	db *sqlx.DB
}

// New wraps the given database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// FindByPlatformID returns the record for a Telegram user id, or nil when no
// record exists.
func (s *Store) FindByPlatformID(ctx context.Context, platformID int64) (*Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, platform_id, current_menu_id, previous_menu_id, language, last_bot_pm_id, created_at, updated_at
		 FROM users WHERE platform_id = $1`, platformID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("userdata: find %d: %w", platformID, err)
	}
	return &rec, nil
}

// Create inserts a fresh record seeded with the triggering message id and the
// user's reported language.
func (s *Store) Create(ctx context.Context, platformID int64, currentMenuID, language string, seedMsgID int) (*Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		`INSERT INTO users (platform_id, current_menu_id, previous_menu_id, language, last_bot_pm_id)
		 VALUES ($1, $2, '', $3, $4)
		 RETURNING id, platform_id, current_menu_id, previous_menu_id, language, last_bot_pm_id, created_at, updated_at`,
		platformID, currentMenuID, language, seedMsgID)
	if err != nil {
		return nil, fmt.Errorf("userdata: create %d: %w", platformID, err)
	}
	logger.DB.Debug("user created",
		slog.String("event", "user.create"),
		slog.Int64("user_id", platformID),
		slog.String("lang", language),
	)
	return &rec, nil
}

// Update writes the navigation pointers, language and last message id back.
func (s *Store) Update(ctx context.Context, platformID int64, currentMenuID, previousMenuID, language string, lastBotPMID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users
		 SET current_menu_id = $2, previous_menu_id = $3, language = $4, last_bot_pm_id = $5, updated_at = now()
		 WHERE platform_id = $1`,
		platformID, currentMenuID, previousMenuID, language, lastBotPMID)
	if err != nil {
		return fmt.Errorf("userdata: update %d: %w", platformID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("userdata: update %d: no such user", platformID)
	}
	return nil
}
