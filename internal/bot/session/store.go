package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"csbot/core/logger"
	"csbot/internal/locale"
	"csbot/internal/userdata"

	tele "gopkg.in/telebot.v4"
)

// UserStore is the durable backing of sessions. *userdata.Store satisfies it.
type UserStore interface {
	FindByPlatformID(ctx context.Context, platformID int64) (*userdata.Record, error)
	Create(ctx context.Context, platformID int64, currentMenuID, language string, seedMsgID int) (*userdata.Record, error)
	Update(ctx context.Context, platformID int64, currentMenuID, previousMenuID, language string, lastBotPMID int) error
}

// Store owns all live sessions. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	users         UserStore
	locales       *locale.Resolver
	lifetime      time.Duration
	defaultMenuID string
}

// NewStore builds a session store. defaultMenuID seeds the navigation pointer
// of first-time users.
func NewStore(users UserStore, locales *locale.Resolver, lifetime time.Duration, defaultMenuID string) *Store {
	return &Store{
		sessions:      make(map[int64]*Session),
		users:         users,
		locales:       locales,
		lifetime:      lifetime,
		defaultMenuID: defaultMenuID,
	}
}

// Register returns the live session for the user, creating one if needed.
// A new session is hydrated from the durable record; first-time users get a
// record seeded with the default menu and their Telegram language. Calling
// Register for an already-registered user is a no-op returning the existing
// session unchanged.
func (st *Store) Register(ctx context.Context, user *tele.User, seed *tele.Message) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[user.ID]; ok {
		s.Touch()
		return s, nil
	}

	rec, err := st.users.FindByPlatformID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		lang := st.pickLang(user.LanguageCode)
		seedMsgID := 0
		if seed != nil {
			seedMsgID = seed.ID
		}
		rec, err = st.users.Create(ctx, user.ID, st.defaultMenuID, lang, seedMsgID)
		if err != nil {
			return nil, err
		}
	}

	s := &Session{
		UserID:         user.ID,
		CurrentMenuID:  rec.CurrentMenuID,
		PreviousMenuID: rec.PreviousMenuID,
		Lang:           rec.Language,
		LastBotPMID:    rec.LastBotPMID,
		resolver:       st.locales,
	}
	s.Touch()
	st.sessions[user.ID] = s
	return s, nil
}

// Get returns the live session for the user, touching it on hit.
func (st *Store) Get(userID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[userID]
	if ok {
		s.Touch()
	}
	return s, ok
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// SweepIdle evicts sessions idle for longer than the configured lifetime.
// Every evicted session is synced to the durable store first; sessions that
// fail to sync stay resident and are retried on the next sweep. Returns the
// number of evicted sessions.
func (st *Store) SweepIdle(ctx context.Context) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := time.Now().Add(-st.lifetime)
	evicted := 0
	for id, s := range st.sessions {
		if s.LastActivity().After(cutoff) {
			continue
		}
		if err := st.sync(ctx, s); err != nil {
			logger.Error(ctx, "session", "session.sync",
				slog.Int64("user_id", id), slog.String("error", err.Error()))
			continue
		}
		delete(st.sessions, id)
		evicted++
	}
	return evicted
}

// SyncAll flushes every live session to the durable store. Used at shutdown.
func (st *Store) SyncAll(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	var firstErr error
	for id, s := range st.sessions {
		if err := st.sync(ctx, s); err != nil {
			logger.Error(ctx, "session", "session.sync",
				slog.Int64("user_id", id), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Sync flushes a single session to the durable store.
func (st *Store) Sync(ctx context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sync(ctx, s)
}

func (st *Store) sync(ctx context.Context, s *Session) error {
	return st.users.Update(ctx, s.UserID, s.CurrentMenuID, s.PreviousMenuID, s.Lang, s.LastBotPMID)
}

func (st *Store) pickLang(code string) string {
	for _, lang := range st.locales.Languages() {
		if lang == code {
			return code
		}
	}
	return st.locales.DefaultLang()
}
