// Package botstats keeps lightweight usage counters for periodic operator
// reports.
package botstats

import "sync"

// Report is a point-in-time snapshot of the counters.
type Report struct {
	Callbacks     int
	InlineQueries int
	Exceptions    int
	UniqueUsers   int
}

// Counters accumulates usage numbers between reports. Safe for concurrent
// use.
type Counters struct {
	mu         sync.Mutex
	callbacks  int
	inline     int
	exceptions int
	users      map[int64]struct{}
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{users: make(map[int64]struct{})}
}

// CallbackHandled records one handled callback.
func (c *Counters) CallbackHandled() {
	c.mu.Lock()
	c.callbacks++
	c.mu.Unlock()
}

// InlineHandled records one answered inline query.
func (c *Counters) InlineHandled() {
	c.mu.Lock()
	c.inline++
	c.mu.Unlock()
}

// ExceptionCaught records one error that reached the exception hook.
func (c *Counters) ExceptionCaught() {
	c.mu.Lock()
	c.exceptions++
	c.mu.Unlock()
}

// UserServed marks the user as active in the current reporting window.
func (c *Counters) UserServed(userID int64) {
	c.mu.Lock()
	c.users[userID] = struct{}{}
	c.mu.Unlock()
}

// Snapshot returns the current numbers without resetting them.
func (c *Counters) Snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report()
}

// SnapshotAndReset returns the current numbers and starts a fresh window.
func (c *Counters) SnapshotAndReset() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.report()
	c.callbacks = 0
	c.inline = 0
	c.exceptions = 0
	c.users = make(map[int64]struct{})
	return r
}

func (c *Counters) report() Report {
	return Report{
		Callbacks:     c.callbacks,
		InlineQueries: c.inline,
		Exceptions:    c.exceptions,
		UniqueUsers:   len(c.users),
	}
}
