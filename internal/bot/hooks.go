package bot

import (
	"errors"
	"log/slog"

	"csbot/core/logger"
	"csbot/core/telegram/helpers"
	"csbot/internal/bot/menu"
	"csbot/internal/bot/session"

	tele "gopkg.in/telebot.v4"
)

// exceptionHook is the single place errors escaping renders and processes
// arrive at. It records the failure, tells the user, and parks the session
// back on the entry screen. err may be nil when a conversation lost its
// tracked message.
func (cl *Client) exceptionHook(c tele.Context, s *session.Session, err error) {
	ctx := helpers.BuildContext(c)

	reason := "tracked message lost"
	if err != nil {
		reason = err.Error()
	}
	logger.Error(ctx, "tg", "handler.failed",
		slog.Int64("user_id", s.UserID),
		slog.String("menu_id", s.CurrentMenuID),
		slog.String("error", reason))
	cl.queue.PutSystem("handler failed: " + logger.SanitizeLimit(reason, 256))

	var edge *menu.EdgeError
	if !errors.As(err, &edge) {
		// A stale keyboard press is silently re-homed; anything else gets
		// an apology first.
		_ = helpers.SendText(c, s.Locale().Get("error.wentwrong"))
	}

	if wc := cl.reg.Wildcard(); wc != nil {
		// The recovery render must not loop back into the hook.
		_ = cl.nav.Jump(c, s, wc)
	}
}

// exceptionHookCounted is for call sites outside the navigator, which counts
// before forwarding.
func (cl *Client) exceptionHookCounted(c tele.Context, s *session.Session, err error) {
	cl.counters.ExceptionCaught()
	cl.exceptionHook(c, s, err)
}
