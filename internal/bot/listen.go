package bot

import (
	"errors"
	"sync"
	"time"

	"csbot/internal/bot/session"

	tele "gopkg.in/telebot.v4"
)

// Outcome tags the result of waiting for a user's answer.
type Outcome int

const (
	// OutcomeOk means the user answered in time.
	OutcomeOk Outcome = iota
	// OutcomeTimedOut means the wait expired with no answer.
	OutcomeTimedOut
	// OutcomeUserUnavailable means the question could not be delivered,
	// usually because the user blocked the bot.
	OutcomeUserUnavailable
)

// listeners routes incoming updates to handlers waiting mid-conversation.
// At most one waiter per user exists at a time; a newer wait replaces the
// older one, which then simply times out.
type listeners struct {
	mu        sync.Mutex
	messages  map[int64]chan *tele.Message
	callbacks map[int64]chan *tele.Callback
}

func newListeners() *listeners {
	return &listeners{
		messages:  make(map[int64]chan *tele.Message),
		callbacks: make(map[int64]chan *tele.Callback),
	}
}

// offerMessage hands an incoming message to the user's waiter, reporting
// whether it was consumed.
func (l *listeners) offerMessage(userID int64, m *tele.Message) bool {
	l.mu.Lock()
	ch, ok := l.messages[userID]
	if ok {
		delete(l.messages, userID)
	}
	l.mu.Unlock()
	if !ok {
		return false
	}
	ch <- m
	return true
}

// offerCallback hands an incoming callback to the user's waiter.
func (l *listeners) offerCallback(userID int64, cb *tele.Callback) bool {
	l.mu.Lock()
	ch, ok := l.callbacks[userID]
	if ok {
		delete(l.callbacks, userID)
	}
	l.mu.Unlock()
	if !ok {
		return false
	}
	ch <- cb
	return true
}

func (l *listeners) waitMessage(userID int64, timeout time.Duration) (*tele.Message, Outcome) {
	ch := make(chan *tele.Message, 1)
	l.mu.Lock()
	l.messages[userID] = ch
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-ch:
		return m, OutcomeOk
	case <-timer.C:
		l.mu.Lock()
		if l.messages[userID] == ch {
			delete(l.messages, userID)
		}
		l.mu.Unlock()
		return nil, OutcomeTimedOut
	}
}

// AskMessage sends prompt to the user and waits for their next text message.
// The prompt becomes the session's tracked message so the conversation can
// be resumed if the process restarts mid-wait.
func (cl *Client) AskMessage(c tele.Context, s *session.Session, prompt string, markup *tele.ReplyMarkup) (*tele.Message, Outcome) {
	sent, err := cl.sendPrompt(c, prompt, markup)
	if err != nil {
		return nil, OutcomeUserUnavailable
	}
	if sent != nil {
		s.RememberBotMessage(sent)
	}
	return cl.listeners.waitMessage(s.UserID, cl.askTimeout)
}

func (cl *Client) sendPrompt(c tele.Context, prompt string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	if c.Callback() != nil {
		opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup}
		if err := c.Edit(prompt, opts); err != nil && !errors.Is(err, tele.ErrSameMessageContent) {
			return nil, err
		}
		return c.Message(), nil
	}
	return c.Bot().Send(c.Recipient(), prompt, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
}
