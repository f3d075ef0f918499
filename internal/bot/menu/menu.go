// Package menu implements the registry of screens the bot can show and the
// navigation between them. Screens are wired up once at startup and frozen;
// after that the registry is read-only and safe for concurrent use.
package menu

import (
	"errors"

	"csbot/internal/bot/session"

	tele "gopkg.in/telebot.v4"
)

// ErrListenTimeout is returned by ask helpers when the user does not answer
// within the allotted time. Renderers may return it to signal an abandoned
// conversation; it is absorbed and never reaches the exception hook.
var ErrListenTimeout = errors.New("menu: timed out waiting for user input")

// Kind distinguishes screens that move the navigation pointers from one-shot
// actions that leave them alone.
type Kind int

const (
	// KindNav is a regular screen: jumping to it updates the session's
	// current and previous menu pointers.
	KindNav Kind = iota

	// KindFunc is a one-shot action rendered without touching the pointers,
	// so a follow-up "back" returns to where the user already was.
	KindFunc
)

// RenderFunc draws the screen and returns the message it produced, or nil
// when nothing user-visible was sent.
type RenderFunc func(c tele.Context, s *session.Session) (*tele.Message, error)

// ProcessFunc resumes a multi-step conversation parked on a screen. msg is
// the bot message the conversation revolves around; it may be nil when only
// its id survived a restart.
type ProcessFunc func(c tele.Context, s *session.Session, msg *tele.Message) error

// Menu is one screen. Menus are immutable after Registry.Freeze.
type Menu struct {
	id                string
	cameFrom          string
	kind              Kind
	ignoreNotModified bool

	render          RenderFunc
	messageProcess  ProcessFunc
	callbackProcess ProcessFunc
}

// ID returns the unique menu id.
func (m *Menu) ID() string { return m.id }

// CameFrom returns the id of the single legal predecessor screen, or ""
// when the menu is reachable from anywhere.
func (m *Menu) CameFrom() string { return m.cameFrom }

// IsNav reports whether jumping to the menu moves the navigation pointers.
func (m *Menu) IsNav() bool { return m.kind == KindNav }

// HasMessageProcess reports whether the menu can resume a text conversation.
func (m *Menu) HasMessageProcess() bool { return m.messageProcess != nil }

// HasCallbackProcess reports whether the menu handles unrouted callbacks.
func (m *Menu) HasCallbackProcess() bool { return m.callbackProcess != nil }

// Invoke renders the menu, absorbing the transport errors that must never
// bubble to the exception hook.
func (m *Menu) Invoke(c tele.Context, s *session.Session) (*tele.Message, error) {
	if m.render == nil {
		return nil, nil
	}
	msg, err := m.render(c, s)
	return msg, m.absorb(err)
}

// RunMessageProcess resumes the menu's text conversation.
func (m *Menu) RunMessageProcess(c tele.Context, s *session.Session, msg *tele.Message) error {
	if m.messageProcess == nil {
		return nil
	}
	return m.absorb(m.messageProcess(c, s, msg))
}

// RunCallbackProcess lets the menu consume a callback no route claimed.
func (m *Menu) RunCallbackProcess(c tele.Context, s *session.Session, msg *tele.Message) error {
	if m.callbackProcess == nil {
		return nil
	}
	return m.absorb(m.callbackProcess(c, s, msg))
}

// absorb swallows the errors that are part of normal operation: an abandoned
// ask, a user who blocked the bot, and, when the menu opts in, an edit that
// changed nothing.
func (m *Menu) absorb(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrListenTimeout) || errors.Is(err, tele.ErrBlockedByUser) {
		return nil
	}
	if m.ignoreNotModified && errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}
