package logqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	text   string
	silent bool
}

func collectingDeliver(out *[]delivery) DeliverFunc {
	return func(text string, silent bool) error {
		*out = append(*out, delivery{text: text, silent: silent})
		return nil
	}
}

func TestProcessOnceEmptyQueue(t *testing.T) {
	var sent []delivery
	q := New(collectingDeliver(&sent))

	assert.False(t, q.ProcessOnce())
	assert.Empty(t, sent)
}

func TestSystemEntriesDrainOnePerTick(t *testing.T) {
	var sent []delivery
	q := New(collectingDeliver(&sent))

	q.PutSystem("collector degraded")
	q.PutSystem("collector recovered")

	require.True(t, q.ProcessOnce())
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "collector degraded")
	assert.False(t, sent[0].silent, "system events must notify")
	assert.Equal(t, 1, q.Len())

	require.True(t, q.ProcessOnce())
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].text, "collector recovered")
	assert.Equal(t, 0, q.Len())
}

func TestUserEntriesDrainAsOneSilentDigest(t *testing.T) {
	var sent []delivery
	q := New(collectingDeliver(&sent))

	q.PutUser(42, "gopher", "en", "ru", "opened server stats")
	q.PutUser(42, "gopher", "en", "ru", "opened matchmaking")
	q.PutUser(42, "gopher", "en", "ru", "changed language")

	require.True(t, q.ProcessOnce())
	require.Len(t, sent, 1)
	assert.True(t, sent[0].silent, "user digests must not notify")
	assert.Contains(t, sent[0].text, "gopher (42)")
	assert.Contains(t, sent[0].text, "opened server stats")
	assert.Contains(t, sent[0].text, "opened matchmaking")
	assert.Contains(t, sent[0].text, "changed language")
	assert.Equal(t, 0, q.Len())
}

func TestOriginatorsDrainInArrivalOrder(t *testing.T) {
	var sent []delivery
	q := New(collectingDeliver(&sent))

	q.PutUser(1, "first", "en", "en", "a")
	q.PutSystem("boom")
	q.PutUser(2, "second", "en", "en", "b")

	require.True(t, q.ProcessOnce())
	require.True(t, q.ProcessOnce())
	require.True(t, q.ProcessOnce())

	require.Len(t, sent, 3)
	assert.Contains(t, sent[0].text, "first (1)")
	assert.Contains(t, sent[1].text, "boom")
	assert.Contains(t, sent[2].text, "second (2)")
}

func TestFailedDeliveryRequeues(t *testing.T) {
	fail := true
	var sent []delivery
	q := New(func(text string, silent bool) error {
		if fail {
			return errors.New("telegram unavailable")
		}
		sent = append(sent, delivery{text: text, silent: silent})
		return nil
	})

	q.PutUser(42, "gopher", "en", "en", "opened server stats")

	assert.False(t, q.ProcessOnce())
	assert.Equal(t, 1, q.Len(), "a failed delivery must not lose entries")

	fail = false
	require.True(t, q.ProcessOnce())
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "opened server stats")
}

func TestNewEntriesDuringFailureKeepOrder(t *testing.T) {
	fail := true
	var sent []delivery
	q := New(func(text string, silent bool) error {
		if fail {
			return errors.New("telegram unavailable")
		}
		sent = append(sent, delivery{text: text, silent: silent})
		return nil
	})

	q.PutSystem("first")
	assert.False(t, q.ProcessOnce())
	q.PutSystem("second")

	fail = false
	require.True(t, q.ProcessOnce())
	require.True(t, q.ProcessOnce())
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].text, "first")
	assert.Contains(t, sent[1].text, "second")
}
