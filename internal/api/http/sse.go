package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/AtharvDutare/Scan-Crop/internal/result"
)

const (
	streamBuffer       = 16
	streamKeepAlive    = 15 * time.Second
	streamStartTimeout = 10 * time.Second
)

func prepareStream(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
}

// offerLatest sends v without blocking. When ch is full the oldest queued
// value is dropped, so the newest value is always delivered. ch must have a
// single sender.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// streamGuard releases a stream's resources when its body writer never runs.
type streamGuard struct {
	mu       sync.Mutex
	started  bool
	released bool
	release  func()
	begun    chan struct{}
}

// newStreamGuard calls release unless start is called before timeout
// elapses or done closes.
func newStreamGuard(done <-chan struct{}, timeout time.Duration, release func()) *streamGuard {
	g := &streamGuard{release: release, begun: make(chan struct{})}

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-g.begun:
		case <-done:
			g.expire()
		case <-timer.C:
			g.expire()
		}
	}()
	return g
}

// start reports whether the writer may proceed. It returns false once the
// guard has released the stream.
func (g *streamGuard) start() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return false
	}
	if !g.started {
		g.started = true
		close(g.begun)
	}
	return true
}

func (g *streamGuard) expire() {
	g.mu.Lock()
	if g.started || g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	g.mu.Unlock()

	g.release()
}

// streamStates writes the current state, then one event per publication,
// until the client goes away or done is closed. A slow client skips
// intermediate states but always receives the latest one.
func streamStates[T any](
	c *fiber.Ctx,
	done <-chan struct{},
	event string,
	subscribe func(func(result.State[T])) func(),
	current func() (result.State[T], bool),
) error {
	prepareStream(c)

	updates := make(chan result.View[T], streamBuffer)
	unsubscribe := subscribe(func(s result.State[T]) {
		offerLatest(updates, result.ViewOf[T](s, true))
	})
	initial := result.ViewOf[T](current())
	guard := newStreamGuard(done, streamStartTimeout, unsubscribe)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		if !guard.start() {
			return
		}

		if err := writeEvent(w, event, initial); err != nil {
			return
		}
		pump[result.View[T]](w, done, event, updates)
	}))
	return nil
}

func pump[T any](w *bufio.Writer, done <-chan struct{}, event string, updates <-chan T) {
	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case v, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, event, v); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
