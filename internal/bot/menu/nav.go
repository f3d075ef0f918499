package menu

import (
	"fmt"
	"log/slog"

	"csbot/core/logger"
	"csbot/core/telegram/helpers"
	"csbot/internal/bot/session"

	tele "gopkg.in/telebot.v4"
)

// EdgeError reports a guarded transition attempted from the wrong screen,
// for example a stale inline keyboard pressed after the user moved on.
type EdgeError struct {
	From string
	To   string
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("menu: no edge from %q to %q", e.From, e.To)
}

// Hook is called with every error that escapes a render or process. err may
// be nil when the failure has no error value, such as a conversation whose
// tracked message vanished.
type Hook func(c tele.Context, s *session.Session, err error)

// Counters is the slice of the stats collector the navigator feeds.
type Counters interface {
	CallbackHandled()
	ExceptionCaught()
}

// Navigator drives sessions between menus. Errors escaping renders and
// processes are counted and forwarded to the hook at a single choke point;
// the navigator's own entry points only return errors the hook has not seen.
type Navigator struct {
	reg      *Registry
	counters Counters
	hook     Hook
}

// NewNavigator builds a navigator over a frozen registry.
func NewNavigator(reg *Registry, counters Counters, hook Hook) *Navigator {
	return &Navigator{reg: reg, counters: counters, hook: hook}
}

// GoTo jumps to target after checking the transition is legal: a menu with a
// fixed predecessor may only be entered from that predecessor. An illegal
// transition returns *EdgeError without rendering anything.
func (n *Navigator) GoTo(c tele.Context, s *session.Session, target *Menu) error {
	if target.cameFrom != "" && target.cameFrom != s.CurrentMenuID {
		return &EdgeError{From: s.CurrentMenuID, To: target.id}
	}
	return n.Jump(c, s, target)
}

// Jump renders target unconditionally. For nav menus the session pointers
// move before the render runs, so state stays consistent even when the
// render fails; the message the render returns becomes the session's
// tracked message.
func (n *Navigator) Jump(c tele.Context, s *session.Session, target *Menu) error {
	if target == nil {
		return nil
	}
	if target.IsNav() {
		s.PreviousMenuID = target.cameFrom
		s.CurrentMenuID = target.id
	}
	msg, err := target.Invoke(c, s)
	if msg != nil {
		s.RememberBotMessage(msg)
	}
	return err
}

// GoBack returns to the previous screen. With no previous screen recorded it
// falls back to the wildcard menu, and with no wildcard either it does
// nothing.
func (n *Navigator) GoBack(c tele.Context, s *session.Session) error {
	if prev, ok := n.reg.Get(s.PreviousMenuID); ok {
		return n.Jump(c, s, prev)
	}
	if wc := n.reg.Wildcard(); wc != nil {
		return n.Jump(c, s, wc)
	}
	return nil
}

// ResolveCallback handles one callback trigger for the session. Resolution
// order: a route scoped to the current screen, then the current screen's own
// callback process, then recovery. A session parked on an unknown screen is
// reset to the wildcard menu and resolution retried exactly once, so a stale
// trigger still lands somewhere sensible. Render and process errors are
// counted and forwarded to the hook here; ResolveCallback itself never
// returns them.
func (n *Navigator) ResolveCallback(c tele.Context, s *session.Session, trigger string) {
	n.resolveCallback(c, s, trigger, 0)
}

func (n *Navigator) resolveCallback(c tele.Context, s *session.Session, trigger string, depth int) {
	if dest, ok := n.reg.Resolve(trigger, s.CurrentMenuID); ok {
		n.counters.CallbackHandled()
		if err := n.GoTo(c, s, dest); err != nil {
			n.fail(c, s, err)
		}
		return
	}

	if cur, ok := n.reg.Get(s.CurrentMenuID); ok {
		if cur.HasCallbackProcess() {
			n.counters.CallbackHandled()
			if err := cur.RunCallbackProcess(c, s, s.TrackedMessage()); err != nil {
				n.fail(c, s, err)
			}
			return
		}
	} else if depth == 0 {
		if wc := n.reg.Wildcard(); wc != nil {
			logger.Warn(helpers.BuildContext(c), "tg", "nav.reset",
				slog.String("menu_id", s.CurrentMenuID), slog.String("trigger", trigger))
			s.CurrentMenuID = wc.id
			s.PreviousMenuID = ""
			n.resolveCallback(c, s, trigger, depth+1)
			return
		}
	}

	if wc := n.reg.Wildcard(); wc != nil {
		if err := n.Jump(c, s, wc); err != nil {
			n.fail(c, s, err)
		}
	}
}

// ContinueMessage resumes the conversation parked on the current screen with
// the user's text message. It reports whether the screen had a conversation
// to resume; a false return means the caller should treat the text as
// unsolicited. Errors are counted and forwarded to the hook.
func (n *Navigator) ContinueMessage(c tele.Context, s *session.Session) bool {
	cur, ok := n.reg.Get(s.CurrentMenuID)
	if !ok || !cur.HasMessageProcess() {
		return false
	}

	if s.LastBotPMID == 0 {
		// Nothing to resume: restart the user at the wildcard screen.
		if wc := n.reg.Wildcard(); wc != nil {
			if err := n.Jump(c, s, wc); err != nil {
				n.fail(c, s, err)
			}
		}
		return true
	}

	msg := s.TrackedMessage()
	if msg == nil {
		// The id survived a restart but the message itself is gone. Leave a
		// placeholder carrying just the id as the tracked message so the
		// hook's recovery render still has something to address, and report
		// the gap instead of resuming.
		s.RememberBotMessage(&tele.Message{ID: s.LastBotPMID, Chat: c.Chat()})
		n.fail(c, s, nil)
		return true
	}
	if err := cur.RunMessageProcess(c, s, msg); err != nil {
		n.fail(c, s, err)
	}
	return true
}

func (n *Navigator) fail(c tele.Context, s *session.Session, err error) {
	n.counters.ExceptionCaught()
	if n.hook != nil {
		n.hook(c, s, err)
	}
}
