package menu

import (
	"errors"
	"testing"

	"csbot/internal/bot/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the handful of tele.Context methods the menu engine
// touches. Everything else panics, which is exactly what a test should do if
// the engine starts calling transport methods it has no business calling.
type fakeContext struct {
	tele.Context
	data   map[string]any
	chat   *tele.Chat
	sender *tele.User
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		data:   make(map[string]any),
		chat:   &tele.Chat{ID: 100, Type: tele.ChatPrivate},
		sender: &tele.User{ID: 100, Username: "gopher"},
	}
}

func (f *fakeContext) Get(key string) any    { return f.data[key] }
func (f *fakeContext) Set(key string, v any) { f.data[key] = v }
func (f *fakeContext) Chat() *tele.Chat      { return f.chat }
func (f *fakeContext) Sender() *tele.User    { return f.sender }
func (f *fakeContext) Update() tele.Update   { return tele.Update{ID: 1} }

func staticRender(msg *tele.Message, err error) RenderFunc {
	return func(tele.Context, *session.Session) (*tele.Message, error) {
		return msg, err
	}
}

func TestInvokeAbsorbsConversationalErrors(t *testing.T) {
	c := newFakeContext()
	s := &session.Session{}

	for name, err := range map[string]error{
		"listen timeout": ErrListenTimeout,
		"blocked":        tele.ErrBlockedByUser,
	} {
		m := &Menu{id: "m", render: staticRender(nil, err)}
		_, got := m.Invoke(c, s)
		assert.NoError(t, got, name)
	}
}

func TestInvokeNotModifiedNeedsOptIn(t *testing.T) {
	c := newFakeContext()
	s := &session.Session{}

	strict := &Menu{id: "strict", render: staticRender(nil, tele.ErrSameMessageContent)}
	_, err := strict.Invoke(c, s)
	assert.ErrorIs(t, err, tele.ErrSameMessageContent)

	lenient := &Menu{id: "lenient", ignoreNotModified: true, render: staticRender(nil, tele.ErrSameMessageContent)}
	_, err = lenient.Invoke(c, s)
	assert.NoError(t, err)
}

func TestInvokePassesThroughRealErrors(t *testing.T) {
	boom := errors.New("render failed")
	m := &Menu{id: "m", render: staticRender(nil, boom)}

	_, err := m.Invoke(newFakeContext(), &session.Session{})
	assert.ErrorIs(t, err, boom)
}

func TestAddMenuIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	first := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	again := reg.AddNavMenu("main", "something_else", staticRender(nil, nil))

	assert.Same(t, first, again)
	_, ok := reg.Resolve("something_else", "")
	assert.False(t, ok, "a duplicate registration must not add routes")
}

func TestResolvePrefersOriginScopedRoute(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	settings := reg.AddNavMenu("settings", "settings", staticRender(nil, nil))

	fromMain := reg.AddNavMenu("stats_main", "stats", staticRender(nil, nil), CameFrom(main))
	fromSettings := reg.AddNavMenu("stats_settings", "stats", staticRender(nil, nil), CameFrom(settings))

	dest, ok := reg.Resolve("stats", "main")
	require.True(t, ok)
	assert.Same(t, fromMain, dest)

	dest, ok = reg.Resolve("stats", "settings")
	require.True(t, ok)
	assert.Same(t, fromSettings, dest)

	_, ok = reg.Resolve("stats", "elsewhere")
	assert.False(t, ok, "a scoped trigger must not resolve from a foreign screen")
}

func TestResolveFallsBackToDirectRoute(t *testing.T) {
	reg := NewRegistry()
	about := reg.AddFuncMenu("about", "about", staticRender(nil, nil))

	dest, ok := reg.Resolve("about", "anywhere")
	require.True(t, ok)
	assert.Same(t, about, dest)
}

func TestFreezeSealsRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.AddNavMenu("main", "main", staticRender(nil, nil))
	reg.Freeze()

	assert.Panics(t, func() {
		reg.AddNavMenu("late", "late", staticRender(nil, nil))
	})
}

func TestCommandListHidesAdminCommands(t *testing.T) {
	reg := NewRegistry()
	reg.AddCommand("start", Command{Description: "open the main menu"})
	reg.AddCommand("help", Command{Description: "how to use the bot"})
	reg.AddCommand("stats", Command{Description: "usage counters", AdminOnly: true})

	list := reg.CommandList()
	require.Len(t, list, 2)
	assert.Equal(t, "help", list[0].Text)
	assert.Equal(t, "start", list[1].Text)
}
