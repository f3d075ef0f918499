package menu

import (
	"errors"
	"testing"

	"csbot/internal/bot/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeCounters struct {
	callbacks  int
	exceptions int
}

func (f *fakeCounters) CallbackHandled() { f.callbacks++ }
func (f *fakeCounters) ExceptionCaught() { f.exceptions++ }

type hookCall struct {
	err  error
	seen bool
}

func recordingHook(call *hookCall) Hook {
	return func(_ tele.Context, _ *session.Session, err error) {
		call.seen = true
		call.err = err
	}
}

func TestGoToRejectsIllegalEdge(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	rendered := false
	stats := reg.AddNavMenu("server_stats", "server_stats",
		func(tele.Context, *session.Session) (*tele.Message, error) {
			rendered = true
			return nil, nil
		}, CameFrom(main))
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "settings"}

	err := nav.GoTo(newFakeContext(), s, stats)

	var edge *EdgeError
	require.ErrorAs(t, err, &edge)
	assert.Equal(t, "settings", edge.From)
	assert.Equal(t, "server_stats", edge.To)
	assert.False(t, rendered, "an illegal transition must not render")
	assert.Equal(t, "settings", s.CurrentMenuID, "an illegal transition must not move pointers")
}

func TestJumpMovesPointersBeforeRender(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))

	var seenCurrent, seenPrevious string
	stats := reg.AddNavMenu("server_stats", "server_stats",
		func(_ tele.Context, s *session.Session) (*tele.Message, error) {
			seenCurrent = s.CurrentMenuID
			seenPrevious = s.PreviousMenuID
			return nil, errors.New("render failed")
		}, CameFrom(main))
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "main"}

	err := nav.GoTo(newFakeContext(), s, stats)

	assert.Error(t, err)
	assert.Equal(t, "server_stats", seenCurrent, "pointers move before the render runs")
	assert.Equal(t, "main", seenPrevious)
	assert.Equal(t, "server_stats", s.CurrentMenuID, "pointers stay moved even when the render fails")
}

func TestJumpFuncMenuLeavesPointersAlone(t *testing.T) {
	reg := NewRegistry()
	action := reg.AddFuncMenu("refresh", "refresh", staticRender(nil, nil))
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "main", PreviousMenuID: "settings"}

	require.NoError(t, nav.Jump(newFakeContext(), s, action))
	assert.Equal(t, "main", s.CurrentMenuID)
	assert.Equal(t, "settings", s.PreviousMenuID)
}

func TestJumpTracksRenderedMessage(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(&tele.Message{ID: 77}, nil))
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{}

	require.NoError(t, nav.Jump(newFakeContext(), s, main))
	assert.Equal(t, 77, s.LastBotPMID)
	require.NotNil(t, s.TrackedMessage())
	assert.Equal(t, 77, s.TrackedMessage().ID)
}

func TestGoBackPrefersPreviousThenWildcard(t *testing.T) {
	reg := NewRegistry()
	var mainRenders, settingsRenders int
	main := reg.AddNavMenu("main", "main",
		func(tele.Context, *session.Session) (*tele.Message, error) {
			mainRenders++
			return nil, nil
		})
	reg.AddNavMenu("settings", "settings",
		func(tele.Context, *session.Session) (*tele.Message, error) {
			settingsRenders++
			return nil, nil
		})
	reg.SetWildcard(main)
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)

	s := &session.Session{CurrentMenuID: "language", PreviousMenuID: "settings"}
	require.NoError(t, nav.GoBack(newFakeContext(), s))
	assert.Equal(t, 1, settingsRenders)

	s = &session.Session{CurrentMenuID: "language"}
	require.NoError(t, nav.GoBack(newFakeContext(), s))
	assert.Equal(t, 1, mainRenders, "no previous screen falls back to the wildcard")
}

func TestGoBackWithoutWildcardIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "ghost"}
	assert.NoError(t, nav.GoBack(newFakeContext(), s))
}

func TestResolveCallbackRoutesAndCounts(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	reg.AddNavMenu("settings", "settings", staticRender(&tele.Message{ID: 5}, nil), CameFrom(main))
	reg.SetWildcard(main)
	reg.Freeze()

	counters := &fakeCounters{}
	nav := NewNavigator(reg, counters, nil)
	s := &session.Session{CurrentMenuID: "main"}

	nav.ResolveCallback(newFakeContext(), s, "settings")

	assert.Equal(t, "settings", s.CurrentMenuID)
	assert.Equal(t, 1, counters.callbacks)
	assert.Equal(t, 0, counters.exceptions)
}

func TestResolveCallbackForwardsEdgeErrorToHook(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	settings := reg.AddNavMenu("settings", "settings", staticRender(nil, nil))
	language := reg.AddNavMenu("language", "language", staticRender(nil, nil), CameFrom(settings))
	reg.AddRoute("language", main, language)
	reg.SetWildcard(main)
	reg.Freeze()

	counters := &fakeCounters{}
	var call hookCall
	nav := NewNavigator(reg, counters, recordingHook(&call))

	// A stale "language" button pressed while the session sits on main: the
	// route resolves but the edge guard rejects the transition.
	s := &session.Session{CurrentMenuID: "main"}
	nav.ResolveCallback(newFakeContext(), s, "language")

	require.True(t, call.seen)
	var edge *EdgeError
	assert.ErrorAs(t, call.err, &edge)
	assert.Equal(t, 1, counters.exceptions)
}

func TestResolveCallbackUsesCallbackProcess(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	language := reg.AddNavMenu("language", "language", staticRender(nil, nil))
	processed := false
	reg.AttachCallbackProcess(language, func(tele.Context, *session.Session, *tele.Message) error {
		processed = true
		return nil
	})
	reg.SetWildcard(main)
	reg.Freeze()

	counters := &fakeCounters{}
	nav := NewNavigator(reg, counters, nil)
	s := &session.Session{CurrentMenuID: "language"}

	nav.ResolveCallback(newFakeContext(), s, "page_2")

	assert.True(t, processed)
	assert.Equal(t, 1, counters.callbacks)
	assert.Equal(t, "language", s.CurrentMenuID, "a consumed callback must not navigate")
}

func TestResolveCallbackRecoversUnknownMenu(t *testing.T) {
	reg := NewRegistry()
	main := reg.AddNavMenu("main", "main", staticRender(nil, nil))
	reg.AddNavMenu("settings", "settings", staticRender(nil, nil), CameFrom(main))
	reg.SetWildcard(main)
	reg.Freeze()

	counters := &fakeCounters{}
	nav := NewNavigator(reg, counters, nil)

	// The durable record references a screen that no longer exists. The
	// session is reset to the wildcard and the trigger retried once, so the
	// tap still lands.
	s := &session.Session{CurrentMenuID: "retired_screen"}
	nav.ResolveCallback(newFakeContext(), s, "settings")

	assert.Equal(t, "settings", s.CurrentMenuID)
	assert.Equal(t, 1, counters.callbacks)
}

func TestResolveCallbackUnmatchedFallsBackToWildcard(t *testing.T) {
	reg := NewRegistry()
	renders := 0
	main := reg.AddNavMenu("main", "main",
		func(tele.Context, *session.Session) (*tele.Message, error) {
			renders++
			return nil, nil
		})
	reg.SetWildcard(main)
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "main"}

	nav.ResolveCallback(newFakeContext(), s, "no_such_trigger")
	assert.Equal(t, 1, renders)
}

func TestContinueMessageReportsUnhandled(t *testing.T) {
	reg := NewRegistry()
	reg.AddNavMenu("main", "main", staticRender(nil, nil))
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "main"}
	assert.False(t, nav.ContinueMessage(newFakeContext(), s))
}

func TestContinueMessageWithoutTrackedIDRestarts(t *testing.T) {
	reg := NewRegistry()
	renders := 0
	main := reg.AddNavMenu("main", "main",
		func(tele.Context, *session.Session) (*tele.Message, error) {
			renders++
			return nil, nil
		})
	profile := reg.AddNavMenu("profile", "profile", staticRender(nil, nil))
	reg.AttachMessageProcess(profile, func(tele.Context, *session.Session, *tele.Message) error {
		t.Fatal("process must not run without a tracked message id")
		return nil
	})
	reg.SetWildcard(main)
	reg.Freeze()

	nav := NewNavigator(reg, &fakeCounters{}, nil)
	s := &session.Session{CurrentMenuID: "profile"}

	assert.True(t, nav.ContinueMessage(newFakeContext(), s))
	assert.Equal(t, 1, renders)
}

func TestContinueMessageLostTrackedMessageReportsGap(t *testing.T) {
	reg := NewRegistry()
	profile := reg.AddNavMenu("profile", "profile", staticRender(nil, nil))
	reg.AttachMessageProcess(profile, func(tele.Context, *session.Session, *tele.Message) error {
		t.Fatal("a lost tracked message must not resume the process")
		return nil
	})
	reg.Freeze()

	counters := &fakeCounters{}
	var call hookCall
	nav := NewNavigator(reg, counters, recordingHook(&call))

	// Only the message id survived a restart.
	s := &session.Session{CurrentMenuID: "profile", LastBotPMID: 42}

	assert.True(t, nav.ContinueMessage(newFakeContext(), s))
	assert.True(t, call.seen)
	assert.NoError(t, call.err, "a vanished message is reported without an error value")
	assert.Equal(t, 1, counters.exceptions)
	require.NotNil(t, s.TrackedMessage(), "a placeholder with the surviving id is left behind")
	assert.Equal(t, 42, s.TrackedMessage().ID)
}

func TestContinueMessageRunsProcess(t *testing.T) {
	reg := NewRegistry()
	profile := reg.AddNavMenu("profile", "profile", staticRender(nil, nil))
	var got *tele.Message
	reg.AttachMessageProcess(profile, func(_ tele.Context, _ *session.Session, msg *tele.Message) error {
		got = msg
		return nil
	})
	reg.Freeze()

	counters := &fakeCounters{}
	nav := NewNavigator(reg, counters, nil)

	s := &session.Session{CurrentMenuID: "profile"}
	s.RememberBotMessage(&tele.Message{ID: 42})

	assert.True(t, nav.ContinueMessage(newFakeContext(), s))
	require.NotNil(t, got)
	assert.Equal(t, 42, got.ID)
	assert.Equal(t, 0, counters.exceptions)
}
