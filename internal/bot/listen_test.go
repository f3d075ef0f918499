package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestOfferWithoutWaiterIsNotConsumed(t *testing.T) {
	l := newListeners()
	assert.False(t, l.offerMessage(42, &tele.Message{ID: 1}))
	assert.False(t, l.offerCallback(42, &tele.Callback{}))
}

func TestWaitMessageReceivesOffer(t *testing.T) {
	l := newListeners()

	done := make(chan struct{})
	var got *tele.Message
	var outcome Outcome
	go func() {
		defer close(done)
		got, outcome = l.waitMessage(42, time.Second)
	}()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, ok := l.messages[42]
		return ok
	}, time.Second, time.Millisecond)

	require.True(t, l.offerMessage(42, &tele.Message{ID: 7}))
	<-done

	assert.Equal(t, OutcomeOk, outcome)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.ID)
}

func TestWaitMessageTimesOut(t *testing.T) {
	l := newListeners()

	msg, outcome := l.waitMessage(42, 10*time.Millisecond)
	assert.Nil(t, msg)
	assert.Equal(t, OutcomeTimedOut, outcome)

	// The expired waiter must be gone so later messages are not consumed.
	assert.False(t, l.offerMessage(42, &tele.Message{ID: 1}))
}

func TestWaitersAreIsolatedPerUser(t *testing.T) {
	l := newListeners()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = l.waitMessage(1, 50*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, ok := l.messages[1]
		return ok
	}, time.Second, time.Millisecond)

	assert.False(t, l.offerMessage(2, &tele.Message{ID: 1}), "another user's message must not satisfy the wait")
	<-done
}
