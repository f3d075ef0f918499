package bot

import (
	"csbot/core/telegram/helpers"
	"csbot/internal/bot/menu"

	tele "gopkg.in/telebot.v4"
)

func (cl *Client) registerCommands() {
	cl.reg.AddCommand("start", menu.Command{
		Handler:     cl.cmdStart,
		Description: "open the main menu",
	})
	cl.reg.AddCommand("help", menu.Command{
		Handler:     cl.cmdHelp,
		Description: "how to use the bot",
	})
	cl.reg.AddCommand("settings", menu.Command{
		Handler:     cl.cmdSettings,
		Description: "language and preferences",
	})
	cl.reg.AddCommand("stats", menu.Command{
		Handler:   cl.cmdStats,
		AdminOnly: true,
	})
}

func (cl *Client) cmdStart(c tele.Context) error {
	s, err := cl.register(c)
	if err != nil {
		return err
	}
	cl.counters.UserServed(s.UserID)
	cl.logUser(c, s, "command: /start")

	if err := cl.nav.Jump(c, s, cl.reg.Wildcard()); err != nil {
		cl.exceptionHookCounted(c, s, err)
	}
	return nil
}

func (cl *Client) cmdHelp(c tele.Context) error {
	s, err := cl.register(c)
	if err != nil {
		return err
	}
	cl.logUser(c, s, "command: /help")
	return helpers.SendMD(c, s.Locale().Get("help.text"))
}

func (cl *Client) cmdSettings(c tele.Context) error {
	s, err := cl.register(c)
	if err != nil {
		return err
	}
	cl.logUser(c, s, "command: /settings")

	settings, ok := cl.reg.Get("settings")
	if !ok {
		return nil
	}
	if err := cl.nav.Jump(c, s, settings); err != nil {
		cl.exceptionHookCounted(c, s, err)
	}
	return nil
}

// cmdStats is the admin's on-demand counter report; unlike the periodic one
// it does not reset the window.
func (cl *Client) cmdStats(c tele.Context) error {
	return helpers.SendText(c, formatReport(cl.counters.Snapshot(), cl.sessions.Len()))
}
