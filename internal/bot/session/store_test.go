package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"csbot/internal/locale"
	"csbot/internal/userdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeUserStore struct {
	records map[int64]*userdata.Record
	updates int
	failSync bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{records: make(map[int64]*userdata.Record)}
}

func (f *fakeUserStore) FindByPlatformID(_ context.Context, platformID int64) (*userdata.Record, error) {
	rec, ok := f.records[platformID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeUserStore) Create(_ context.Context, platformID int64, currentMenuID, language string, seedMsgID int) (*userdata.Record, error) {
	rec := &userdata.Record{
		PlatformID:    platformID,
		CurrentMenuID: currentMenuID,
		Language:      language,
		LastBotPMID:   seedMsgID,
	}
	f.records[platformID] = rec
	cp := *rec
	return &cp, nil
}

func (f *fakeUserStore) Update(_ context.Context, platformID int64, currentMenuID, previousMenuID, language string, lastBotPMID int) error {
	if f.failSync {
		return errors.New("store unavailable")
	}
	f.updates++
	f.records[platformID] = &userdata.Record{
		PlatformID:     platformID,
		CurrentMenuID:  currentMenuID,
		PreviousMenuID: previousMenuID,
		Language:       language,
		LastBotPMID:    lastBotPMID,
	}
	return nil
}

func testResolver(t *testing.T) *locale.Resolver {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("greeting: hello\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ru.yaml"), []byte("greeting: privet\n"), 0o644))

	r, err := locale.NewResolver(dir, "en")
	require.NoError(t, err)
	return r
}

func TestRegisterCreatesAndHydrates(t *testing.T) {
	users := newFakeUserStore()
	st := NewStore(users, testResolver(t), time.Hour, "main")

	s, err := st.Register(context.Background(), &tele.User{ID: 42, LanguageCode: "ru"}, &tele.Message{ID: 7})
	require.NoError(t, err)

	assert.Equal(t, "main", s.CurrentMenuID)
	assert.Equal(t, "ru", s.Lang)
	assert.Equal(t, 7, s.LastBotPMID)
	require.Contains(t, users.records, int64(42))
}

func TestRegisterUnknownLanguageFallsBack(t *testing.T) {
	users := newFakeUserStore()
	st := NewStore(users, testResolver(t), time.Hour, "main")

	s, err := st.Register(context.Background(), &tele.User{ID: 1, LanguageCode: "de"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "en", s.Lang)
}

func TestRegisterIsIdempotent(t *testing.T) {
	users := newFakeUserStore()
	st := NewStore(users, testResolver(t), time.Hour, "main")

	first, err := st.Register(context.Background(), &tele.User{ID: 42}, nil)
	require.NoError(t, err)
	first.CurrentMenuID = "server_stats"

	again, err := st.Register(context.Background(), &tele.User{ID: 42}, nil)
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Equal(t, "server_stats", again.CurrentMenuID, "re-registering must not reset live state")
	assert.Equal(t, 1, st.Len())
}

func TestRegisterHydratesExistingRecord(t *testing.T) {
	users := newFakeUserStore()
	users.records[42] = &userdata.Record{
		PlatformID:     42,
		CurrentMenuID:  "settings",
		PreviousMenuID: "main",
		Language:       "ru",
		LastBotPMID:    99,
	}
	st := NewStore(users, testResolver(t), time.Hour, "main")

	s, err := st.Register(context.Background(), &tele.User{ID: 42, LanguageCode: "en"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "settings", s.CurrentMenuID)
	assert.Equal(t, "main", s.PreviousMenuID)
	assert.Equal(t, "ru", s.Lang, "stored language wins over the client hint")
	assert.Equal(t, 99, s.LastBotPMID)
}

func TestSweepIdleSyncsBeforeEvicting(t *testing.T) {
	users := newFakeUserStore()
	st := NewStore(users, testResolver(t), time.Hour, "main")

	s, err := st.Register(context.Background(), &tele.User{ID: 42}, nil)
	require.NoError(t, err)
	s.CurrentMenuID = "server_stats"
	s.SetLastActivity(time.Now().Add(-2 * time.Hour))

	evicted := st.SweepIdle(context.Background())

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, st.Len())
	require.Contains(t, users.records, int64(42))
	assert.Equal(t, "server_stats", users.records[42].CurrentMenuID)
}

func TestSweepIdleKeepsFreshAndUnsyncableSessions(t *testing.T) {
	users := newFakeUserStore()
	st := NewStore(users, testResolver(t), time.Hour, "main")

	fresh, err := st.Register(context.Background(), &tele.User{ID: 1}, nil)
	require.NoError(t, err)
	fresh.Touch()

	stale, err := st.Register(context.Background(), &tele.User{ID: 2}, nil)
	require.NoError(t, err)
	stale.SetLastActivity(time.Now().Add(-2 * time.Hour))

	users.failSync = true
	assert.Equal(t, 0, st.SweepIdle(context.Background()))
	assert.Equal(t, 2, st.Len(), "a session that failed to sync must stay resident")

	users.failSync = false
	assert.Equal(t, 1, st.SweepIdle(context.Background()))
	assert.Equal(t, 1, st.Len())
}

func TestSyncAllFlushesEverySession(t *testing.T) {
	users := newFakeUserStore()
	st := NewStore(users, testResolver(t), time.Hour, "main")

	for _, id := range []int64{1, 2, 3} {
		_, err := st.Register(context.Background(), &tele.User{ID: id}, nil)
		require.NoError(t, err)
	}
	users.updates = 0

	require.NoError(t, st.SyncAll(context.Background()))
	assert.Equal(t, 3, users.updates)
	assert.Equal(t, 3, st.Len(), "flushing must not evict")
}
