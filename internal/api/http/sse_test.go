package httpapi

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfferLatestKeepsNewestValue(t *testing.T) {
	ch := make(chan string, 2)

	offerLatest(ch, "loading")
	offerLatest(ch, "loading")
	offerLatest(ch, "success")

	assert.Equal(t, "loading", <-ch)
	assert.Equal(t, "success", <-ch)
	assert.Empty(t, ch)
}

func TestStreamGuardReleasesOnShutdown(t *testing.T) {
	done := make(chan struct{})
	var released atomic.Int32

	g := newStreamGuard(done, time.Hour, func() { released.Add(1) })
	close(done)

	assert.Eventually(t, func() bool { return released.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, g.start(), "a released stream must not start")
}

func TestStreamGuardReleasesAfterTimeout(t *testing.T) {
	var released atomic.Int32

	g := newStreamGuard(nil, 10*time.Millisecond, func() { released.Add(1) })

	assert.Eventually(t, func() bool { return released.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, g.start())
}

func TestStreamGuardLeavesStartedStreamAlone(t *testing.T) {
	done := make(chan struct{})
	var released atomic.Int32

	g := newStreamGuard(done, 10*time.Millisecond, func() { released.Add(1) })
	assert.True(t, g.start())
	assert.True(t, g.start())

	close(done)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, released.Load())
}
