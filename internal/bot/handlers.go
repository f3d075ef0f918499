package bot

import (
	"strconv"

	"csbot/core/telegram/callbacks"
	"csbot/core/telegram/helpers"
	"csbot/core/telegram/keyboard"
	"csbot/internal/bot/menu"
	"csbot/internal/bot/session"
	"csbot/internal/locale"
	"csbot/internal/steamid"

	tele "gopkg.in/telebot.v4"
)

const langPageSize = 8

// registerMenus builds the whole screen graph. Menus are registered first,
// conversation continuations attached second, once every screen they may
// navigate to exists.
func (cl *Client) registerMenus() {
	main := cl.reg.AddNavMenu(MainMenuID, "main", cl.renderMain, menu.IgnoreNotModified())
	cl.reg.SetWildcard(main)

	serverStats := cl.reg.AddNavMenu("server_stats", "server_stats", cl.renderServerStats,
		menu.CameFrom(main), menu.IgnoreNotModified())
	cl.reg.AddFuncMenu("server_stats_refresh", "server_stats_refresh", cl.renderServerStats,
		menu.CameFrom(serverStats), menu.IgnoreNotModified())

	matchmaking := cl.reg.AddNavMenu("matchmaking", "matchmaking", cl.renderMatchmaking,
		menu.CameFrom(main), menu.IgnoreNotModified())
	cl.reg.AddFuncMenu("matchmaking_refresh", "matchmaking_refresh", cl.renderMatchmaking,
		menu.CameFrom(matchmaking), menu.IgnoreNotModified())

	profile := cl.reg.AddNavMenu("profile", "profile", cl.renderProfile, menu.CameFrom(main))

	settings := cl.reg.AddNavMenu("settings", "settings", cl.renderSettings, menu.CameFrom(main))
	language := cl.reg.AddNavMenu("language", "language", cl.renderLanguage,
		menu.CameFrom(settings), menu.IgnoreNotModified())

	cl.reg.AttachMessageProcess(profile, cl.profileProcess)
	cl.reg.AttachCallbackProcess(language, cl.languageProcess)
}

// respond edits the tapped message in place when handling a callback, and
// sends a fresh message otherwise.
func (cl *Client) respond(c tele.Context, text string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	if c.Callback() != nil {
		if err := helpers.EditMD(c, text, markup); err != nil {
			return nil, err
		}
		return c.Message(), nil
	}
	return c.Bot().Send(c.Recipient(), text,
		&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
}

func backRow(loc *locale.Locale) []keyboard.InlineBtn {
	return []keyboard.InlineBtn{{Text: loc.Get("btn.back"), Unique: "back"}}
}

func (cl *Client) renderMain(c tele.Context, s *session.Session) (*tele.Message, error) {
	loc := s.Locale()
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: loc.Get("main.btn.server_stats"), Unique: "server_stats"},
			{Text: loc.Get("main.btn.matchmaking"), Unique: "matchmaking"},
		},
		[]keyboard.InlineBtn{{Text: loc.Get("main.btn.profile"), Unique: "profile"}},
		[]keyboard.InlineBtn{{Text: loc.Get("main.btn.settings"), Unique: "settings"}},
	)
	return cl.respond(c, loc.Get("main.title"), markup)
}

func (cl *Client) renderServerStats(c tele.Context, s *session.Session) (*tele.Message, error) {
	loc := s.Locale()
	stats, err := cl.stats.Read()
	if err != nil {
		return cl.respond(c, loc.Get("stats.unavailable"), keyboard.InlineButtonsRows(backRow(loc)))
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: loc.Get("btn.refresh"), Unique: "server_stats_refresh"}},
		backRow(loc),
	)
	return cl.respond(c, formatServerStats(loc, stats), markup)
}

func (cl *Client) renderMatchmaking(c tele.Context, s *session.Session) (*tele.Message, error) {
	loc := s.Locale()
	stats, err := cl.stats.Read()
	if err != nil {
		return cl.respond(c, loc.Get("stats.unavailable"), keyboard.InlineButtonsRows(backRow(loc)))
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: loc.Get("btn.refresh"), Unique: "matchmaking_refresh"}},
		backRow(loc),
	)
	return cl.respond(c, formatMatchmaking(loc, stats), markup)
}

// renderProfile runs the SteamID conversation: prompt, wait, answer. The
// handler goroutine blocks on the wait, which is fine since every update is
// served on its own goroutine.
func (cl *Client) renderProfile(c tele.Context, s *session.Session) (*tele.Message, error) {
	loc := s.Locale()

	answer, outcome := cl.AskMessage(c, s, loc.Get("profile.ask"), keyboard.InlineButtonsRows(backRow(loc)))
	switch outcome {
	case OutcomeTimedOut:
		return cl.respond(c, loc.Get("profile.timeout"), cl.mainMarkup(loc))
	case OutcomeUserUnavailable:
		return nil, nil
	}
	return cl.answerSteamID(c, s, answer.Text)
}

// profileProcess resumes the SteamID conversation when the answer arrives in
// a later process lifetime, after the original wait is long gone.
func (cl *Client) profileProcess(c tele.Context, s *session.Session, _ *tele.Message) error {
	if c.Message() == nil {
		return nil
	}
	_, err := cl.answerSteamID(c, s, c.Message().Text)
	return err
}

func (cl *Client) answerSteamID(c tele.Context, s *session.Session, input string) (*tele.Message, error) {
	loc := s.Locale()

	id, err := steamid.Parse(input)
	if err != nil {
		// ForceReply keeps the retry flowing through the profile screen's
		// message continuation.
		return c.Bot().Send(c.Recipient(), loc.Get("profile.invalid"),
			&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: keyboard.ForceReply()})
	}
	return c.Bot().Send(c.Recipient(), formatSteamID(loc, id),
		&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: cl.mainMarkup(loc)})
}

func (cl *Client) mainMarkup(loc *locale.Locale) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: loc.Get("btn.main"), Unique: "main"}},
	)
}

func (cl *Client) renderSettings(c tele.Context, s *session.Session) (*tele.Message, error) {
	loc := s.Locale()
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: loc.Get("settings.btn.language"), Unique: "language"}},
		backRow(loc),
	)
	return cl.respond(c, loc.Getf("settings.title", s.Lang), markup)
}

func (cl *Client) renderLanguage(c tele.Context, s *session.Session) (*tele.Message, error) {
	return cl.renderLanguagePage(c, s, 0)
}

func (cl *Client) renderLanguagePage(c tele.Context, s *session.Session, page int) (*tele.Message, error) {
	loc := s.Locale()
	langs := cl.locales.Languages()

	pages := (len(langs) + langPageSize - 1) / langPageSize
	if pages < 1 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * langPageSize
	end := start + langPageSize
	if end > len(langs) {
		end = len(langs)
	}

	var rows [][]keyboard.InlineBtn
	for _, code := range langs[start:end] {
		label := code
		if code == s.Lang {
			label = "✅ " + code
		}
		rows = append(rows, []keyboard.InlineBtn{{Text: label, Unique: "lang", Data: code}})
	}
	if pages > 1 {
		var nav []keyboard.InlineBtn
		if page > 0 {
			nav = append(nav, keyboard.InlineBtn{Text: "«", Unique: "page", Data: strconv.Itoa(page - 1)})
		}
		if page < pages-1 {
			nav = append(nav, keyboard.InlineBtn{Text: "»", Unique: "page", Data: strconv.Itoa(page + 1)})
		}
		rows = append(rows, nav)
	}
	rows = append(rows, backRow(loc))

	return cl.respond(c, loc.Get("language.title"), keyboard.InlineButtonsRows(rows...))
}

// languageProcess consumes the language screen's own buttons: a language
// pick or a page flip.
func (cl *Client) languageProcess(c tele.Context, s *session.Session, _ *tele.Message) error {
	switch callbacks.Key(c) {
	case "lang":
		code := callbacks.Payload(c)
		if !cl.knownLang(code) {
			return nil
		}
		s.SetLang(code)
		if err := cl.sessions.Sync(helpers.BuildContext(c), s); err != nil {
			return err
		}
		settings, ok := cl.reg.Get("settings")
		if !ok {
			return nil
		}
		return cl.nav.Jump(c, s, settings)
	case "page":
		page, err := strconv.Atoi(callbacks.Payload(c))
		if err != nil {
			return nil
		}
		_, err = cl.renderLanguagePage(c, s, page)
		return err
	}
	return nil
}

func (cl *Client) knownLang(code string) bool {
	for _, lang := range cl.locales.Languages() {
		if lang == code {
			return true
		}
	}
	return false
}
