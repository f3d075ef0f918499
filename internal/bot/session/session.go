// Package session keeps per-user conversation state in memory, backed by the
// durable user store.
package session

import (
	"time"

	"csbot/internal/locale"

	tele "gopkg.in/telebot.v4"
)

// Session is the in-memory conversation state of one user. A session is
// created through Store.Register only.
type Session struct {
	UserID int64

	// CurrentMenuID and PreviousMenuID are the navigation pointers; they
	// always name menus known to the registry, except transiently while a
	// stale durable record is being recovered.
	CurrentMenuID  string
	PreviousMenuID string

	// Lang is the user's chosen language code.
	Lang string

	// LastBotPMID is the id of the last bot-authored message, used to resume
	// ask/listen continuations after a restart.
	LastBotPMID int

	lastActivity time.Time
	lastBotMsg   *tele.Message

	resolver *locale.Resolver
	loc      *locale.Locale
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.lastActivity = time.Now()
}

// LastActivity returns the last time the session was accessed.
func (s *Session) LastActivity() time.Time {
	return s.lastActivity
}

// SetLastActivity overrides the activity timestamp. Intended for tests and
// the eviction sweep.
func (s *Session) SetLastActivity(t time.Time) {
	s.lastActivity = t
}

// SetLang switches the session language and drops the cached locale.
func (s *Session) SetLang(lang string) {
	s.Lang = lang
	s.loc = nil
}

// Locale resolves and caches the locale for the session language.
func (s *Session) Locale() *locale.Locale {
	if s.loc == nil {
		s.loc = s.resolver.Locale(s.Lang)
	}
	return s.loc
}

// RememberBotMessage records the last bot-authored message so multi-step
// conversations can be resumed.
func (s *Session) RememberBotMessage(m *tele.Message) {
	if m == nil {
		return
	}
	s.LastBotPMID = m.ID
	s.lastBotMsg = m
}

// TrackedMessage returns the in-memory copy of the last bot message, or nil
// when it is gone (for example after a restart left only the durable id).
func (s *Session) TrackedMessage() *tele.Message {
	if s.lastBotMsg != nil && s.lastBotMsg.ID == s.LastBotPMID {
		return s.lastBotMsg
	}
	return nil
}
