package botstats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	c := NewCounters()

	c.CallbackHandled()
	c.CallbackHandled()
	c.InlineHandled()
	c.ExceptionCaught()
	c.UserServed(1)
	c.UserServed(2)
	c.UserServed(1)

	r := c.Snapshot()
	assert.Equal(t, 2, r.Callbacks)
	assert.Equal(t, 1, r.InlineQueries)
	assert.Equal(t, 1, r.Exceptions)
	assert.Equal(t, 2, r.UniqueUsers, "the same user counts once per window")
}

func TestSnapshotAndResetStartsFreshWindow(t *testing.T) {
	c := NewCounters()
	c.CallbackHandled()
	c.UserServed(1)

	first := c.SnapshotAndReset()
	assert.Equal(t, 1, first.Callbacks)
	assert.Equal(t, 1, first.UniqueUsers)

	c.UserServed(1)
	second := c.SnapshotAndReset()
	assert.Equal(t, 0, second.Callbacks)
	assert.Equal(t, 1, second.UniqueUsers, "a returning user counts again in a new window")
}

func TestCountersConcurrentUse(t *testing.T) {
	c := NewCounters()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c.CallbackHandled()
			c.UserServed(id % 10)
		}(int64(i))
	}
	wg.Wait()

	r := c.Snapshot()
	assert.Equal(t, 50, r.Callbacks)
	assert.Equal(t, 10, r.UniqueUsers)
}
