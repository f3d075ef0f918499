// Package logqueue batches noteworthy bot events and forwards them to the
// operators' log chat without flooding it.
package logqueue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SystemOriginator groups entries produced by the bot itself rather than by
// a user's activity.
const SystemOriginator = "system"

// Entry is one queued log line.
type Entry struct {
	When     time.Time
	Line     string
	UserID   int64
	UserName string
	TGLang   string
	Lang     string
}

// DeliverFunc posts one message to the log chat. silent asks for delivery
// without a notification.
type DeliverFunc func(text string, silent bool) error

// Queue accumulates entries per originator and drains them one originator
// per tick, preserving arrival order between originators. System entries are
// posted one at a time with notifications on; a user's entries are drained
// as a single silent digest.
type Queue struct {
	mu      sync.Mutex
	pending map[string][]Entry
	order   []string

	deliver DeliverFunc
}

// New builds a queue draining through deliver.
func New(deliver DeliverFunc) *Queue {
	return &Queue{
		pending: make(map[string][]Entry),
		deliver: deliver,
	}
}

// PutSystem queues a system event.
func (q *Queue) PutSystem(line string) {
	q.put(SystemOriginator, Entry{When: time.Now(), Line: line})
}

// PutUser queues an event attributed to a user.
func (q *Queue) PutUser(userID int64, userName, tgLang, lang, line string) {
	q.put(fmt.Sprintf("user:%d", userID), Entry{
		When:     time.Now(),
		Line:     line,
		UserID:   userID,
		UserName: userName,
		TGLang:   tgLang,
		Lang:     lang,
	})
}

func (q *Queue) put(originator string, e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[originator]; !ok {
		q.order = append(q.order, originator)
	}
	q.pending[originator] = append(q.pending[originator], e)
}

// Len reports the number of queued entries across all originators.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, entries := range q.pending {
		n += len(entries)
	}
	return n
}

// ProcessOnce drains the oldest originator and reports whether anything was
// delivered. A failed delivery requeues the drained entries at the front so
// nothing is lost.
func (q *Queue) ProcessOnce() bool {
	q.mu.Lock()
	if len(q.order) == 0 {
		q.mu.Unlock()
		return false
	}

	originator := q.order[0]
	var text string
	var silent bool
	var taken []Entry

	if originator == SystemOriginator {
		// System events go out one per tick, loudly.
		entries := q.pending[originator]
		taken = entries[:1]
		if len(entries) == 1 {
			q.dropLocked(originator)
		} else {
			q.pending[originator] = entries[1:]
		}
		text = formatSystem(taken[0])
	} else {
		taken = q.pending[originator]
		q.dropLocked(originator)
		text = formatDigest(taken)
		silent = true
	}
	q.mu.Unlock()

	if err := q.deliver(text, silent); err != nil {
		q.requeue(originator, taken)
		return false
	}
	return true
}

// Run drains the queue on a fixed interval until ctx is cancelled. An
// interval of zero or less disables draining.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.ProcessOnce()
		}
	}
}

func (q *Queue) dropLocked(originator string) {
	delete(q.pending, originator)
	for i, o := range q.order {
		if o == originator {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) requeue(originator string, entries []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[originator]; !ok {
		q.order = append([]string{originator}, q.order...)
	}
	q.pending[originator] = append(entries, q.pending[originator]...)
}

func formatSystem(e Entry) string {
	return fmt.Sprintf("⚙️ %s\n%s", e.When.UTC().Format("2006-01-02 15:04:05"), e.Line)
}

func formatDigest(entries []Entry) string {
	last := entries[len(entries)-1]

	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s (%d)", last.UserName, last.UserID)
	if last.TGLang != "" || last.Lang != "" {
		fmt.Fprintf(&b, " [tg:%s bot:%s]", last.TGLang, last.Lang)
	}
	b.WriteByte('\n')
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s\n", e.When.UTC().Format("15:04:05"), e.Line)
	}
	return strings.TrimRight(b.String(), "\n")
}
