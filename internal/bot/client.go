// Package bot wires the menu engine, session store, collectors' cache and
// the log queue into a running Telegram bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	coreconfig "csbot/core/config"
	"csbot/core/logger"
	"csbot/core/telegram"
	"csbot/core/telegram/callbacks"
	"csbot/core/telegram/helpers"
	"csbot/core/telegram/middleware"
	"csbot/internal/bot/botstats"
	"csbot/internal/bot/logqueue"
	"csbot/internal/bot/menu"
	"csbot/internal/bot/session"
	"csbot/internal/cache"
	"csbot/internal/locale"

	tele "gopkg.in/telebot.v4"
)

// MainMenuID is the id of the entry screen; it doubles as the wildcard every
// lost session is reset to.
const MainMenuID = "main"

// Client is the assembled bot application.
type Client struct {
	cfg      *coreconfig.Config
	reg      *menu.Registry
	nav      *menu.Navigator
	sessions *session.Store
	queue    *logqueue.Queue
	counters *botstats.Counters
	locales  *locale.Resolver
	stats    *cache.Cache

	listeners  *listeners
	askTimeout time.Duration

	bot atomic.Pointer[tele.Bot]
}

// New assembles the client: menus are registered and frozen, the navigator,
// log queue and listeners wired. The Telegram bot itself attaches later via
// OnStart.
func New(cfg *coreconfig.Config, sessions *session.Store, locales *locale.Resolver, stats *cache.Cache) *Client {
	cl := &Client{
		cfg:        cfg,
		sessions:   sessions,
		locales:    locales,
		stats:      stats,
		counters:   botstats.NewCounters(),
		listeners:  newListeners(),
		askTimeout: cfg.AskTimeout(),
	}
	cl.queue = logqueue.New(cl.deliverLog)

	cl.reg = menu.NewRegistry()
	cl.registerMenus()
	cl.registerCommands()
	cl.reg.Freeze()

	cl.nav = menu.NewNavigator(cl.reg, cl.counters, cl.exceptionHook)
	return cl
}

// Counters exposes the usage counters, mainly for the admin report.
func (cl *Client) Counters() *botstats.Counters { return cl.counters }

// Routes returns every handler binding for telegram.Run.
func (cl *Client) Routes() []telegram.Route {
	routes := []telegram.Route{
		{Endpoint: tele.OnText, Handler: cl.onText},
		{Endpoint: tele.OnCallback, Handler: cl.onCallback},
		{Endpoint: tele.OnQuery, Handler: cl.onQuery},
	}
	for name, cmd := range cl.reg.Commands() {
		routes = append(routes, telegram.Route{
			Endpoint: "/" + name,
			Handler:  cl.commandHandler(cmd),
		})
	}
	return routes
}

// CommandList returns the user-visible command menu.
func (cl *Client) CommandList() []tele.Command { return cl.reg.CommandList() }

// OnStart attaches the live bot and announces startup to the log chat.
func (cl *Client) OnStart(_ context.Context, rt telegram.Runtime) error {
	cl.bot.Store(rt.Bot)
	cl.queue.PutSystem(fmt.Sprintf("bot started: @%s", rt.Bot.Me.Username))
	return nil
}

// OnStop flushes sessions and drains the log queue before the process exits.
func (cl *Client) OnStop(ctx context.Context, _ telegram.Runtime) error {
	cl.queue.PutSystem("bot stopping")
	err := cl.sessions.SyncAll(ctx)
	for cl.queue.ProcessOnce() {
	}
	return err
}

// RunBackground starts the periodic chores: log queue draining, idle session
// eviction and the usage report. It returns when ctx is cancelled.
func (cl *Client) RunBackground(ctx context.Context) {
	go cl.queue.Run(ctx, time.Duration(cl.cfg.LogQueue.DrainIntervalSeconds)*time.Second)

	go func() {
		ticker := time.NewTicker(time.Duration(cl.cfg.Sessions.SweepIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evicted := cl.sessions.SweepIdle(ctx)
				if err := cl.sessions.SyncAll(ctx); err != nil {
					logger.Warn(ctx, "session", "session.sync_all",
						slog.String("error", err.Error()))
				}
				if evicted > 0 {
					logger.Info(ctx, "session", "session.sweep",
						slog.Int("evicted", evicted),
						slog.Int("resident", cl.sessions.Len()))
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Duration(cl.cfg.Stats.ReportIntervalHours) * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cl.queue.PutSystem(formatReport(cl.counters.SnapshotAndReset(), cl.sessions.Len()))
			}
		}
	}()

	<-ctx.Done()
}

// deliverLog posts one drained batch to the operators' log chat.
func (cl *Client) deliverLog(text string, silent bool) error {
	b := cl.bot.Load()
	if b == nil {
		return errors.New("bot: not started yet")
	}
	if cl.cfg.Channels.LogChatID == 0 {
		return nil
	}
	_, err := b.Send(tele.ChatID(cl.cfg.Channels.LogChatID), text, &tele.SendOptions{
		DisableNotification: silent,
	})
	return err
}

func (cl *Client) onText(c tele.Context) error {
	if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
		return nil
	}
	ctx := helpers.WithHandler(c, "text")

	s, err := cl.sessions.Register(ctx, c.Sender(), nil)
	if err != nil {
		logger.Error(ctx, "tg", "session.register", slog.String("error", err.Error()))
		return helpers.SendText(c, cl.locales.Locale("").Get("error.wentwrong"))
	}
	cl.counters.UserServed(s.UserID)

	if cl.listeners.offerMessage(s.UserID, c.Message()) {
		return nil
	}

	cl.logUser(c, s, "message: "+logger.SanitizeLimit(c.Text(), 64))
	if cl.nav.ContinueMessage(c, s) {
		return nil
	}

	// Unsolicited text: remind the user this bot is buttons-first and show
	// the entry screen again.
	_ = helpers.SendText(c, s.Locale().Get("error.unknown_request"))
	if err := cl.nav.Jump(c, s, cl.reg.Wildcard()); err != nil {
		cl.exceptionHookCounted(c, s, err)
	}
	return nil
}

func (cl *Client) onCallback(c tele.Context) error {
	ctx := helpers.WithHandler(c, "callback")

	s, err := cl.sessions.Register(ctx, c.Sender(), c.Message())
	if err != nil {
		logger.Error(ctx, "tg", "session.register", slog.String("error", err.Error()))
		return c.Respond()
	}
	cl.counters.UserServed(s.UserID)

	// Stop the client-side spinner right away; the handler may block on a
	// follow-up conversation.
	_ = c.Respond()

	if c.Message() != nil {
		s.RememberBotMessage(c.Message())
	}

	if cl.listeners.offerCallback(s.UserID, c.Callback()) {
		return nil
	}

	trigger := callbacks.Key(c)
	if trigger == "" {
		return nil
	}
	cl.logUser(c, s, "callback: "+logger.SanitizeLimit(trigger, 64))

	if trigger == "back" {
		if err := cl.nav.GoBack(c, s); err != nil {
			cl.exceptionHookCounted(c, s, err)
		}
		return nil
	}
	cl.nav.ResolveCallback(c, s, trigger)
	return nil
}

func (cl *Client) onQuery(c tele.Context) error {
	cl.counters.InlineHandled()
	if c.Sender() != nil {
		cl.counters.UserServed(c.Sender().ID)
	}

	lang := ""
	if c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	loc := cl.locales.Locale(lang)

	stats, err := cl.stats.Read()
	if err != nil {
		logger.Warn(helpers.BuildContext(c), "tg", "inline.cache", slog.String("error", err.Error()))
	}

	server := &tele.ArticleResult{
		Title:       loc.Get("inline.server.title"),
		Description: loc.Getf("inline.server.desc", stats.OnlinePlayers),
		Text:        formatServerStats(loc, stats),
	}
	server.SetResultID("server-stats")

	mm := &tele.ArticleResult{
		Title:       loc.Get("inline.mm.title"),
		Description: loc.Getf("inline.mm.desc", stats.SearchingPlayers),
		Text:        formatMatchmaking(loc, stats),
	}
	mm.SetResultID("matchmaking-stats")

	return c.Answer(&tele.QueryResponse{
		Results:   tele.Results{server, mm},
		CacheTime: 30,
	})
}

func (cl *Client) commandHandler(cmd menu.Command) tele.HandlerFunc {
	if cmd.AdminOnly {
		gate := middleware.AdminOnlyMiddleware(middleware.AdminOptions{AdminID: cl.cfg.Telegram.AdminID})
		return gate(cmd.Handler)
	}
	return cmd.Handler
}

// register returns the session for the update's sender, creating it on
// first contact.
func (cl *Client) register(c tele.Context) (*session.Session, error) {
	ctx := helpers.BuildContext(c)
	return cl.sessions.Register(ctx, c.Sender(), c.Message())
}

func (cl *Client) logUser(c tele.Context, s *session.Session, line string) {
	sender := c.Sender()
	name := ""
	tgLang := ""
	if sender != nil {
		name = sender.Username
		if name == "" {
			name = sender.FirstName
		}
		tgLang = sender.LanguageCode
	}
	cl.queue.PutUser(s.UserID, name, tgLang, s.Lang, line)
}
