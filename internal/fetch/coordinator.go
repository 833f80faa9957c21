package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/AtharvDutare/Scan-Crop/internal/result"
)

var (
	// ErrClosed is returned by Fetch once Close has been called.
	ErrClosed = errors.New("fetch: coordinator closed")
	// ErrTransportPanic wraps a panic recovered from a transport call.
	ErrTransportPanic = errors.New("fetch: transport panicked")
)

// Outcome labels passed to a Recorder.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// Transport performs one request/response exchange for key.
type Transport[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Recorder receives one observation per completed call.
type Recorder interface {
	ObserveFetch(coordinator, outcome string, elapsed time.Duration)
}

// Coordinator owns a single Result State slot and dispatches transport calls
// that resolve it. Concurrent fetches are neither queued nor cancelled: the
// call that completes last wins the slot, unless WithSupersede is set.
type Coordinator[K comparable, T any] struct {
	transport      Transport[K, T]
	failureMessage string
	opts           options
	pool           pond.Pool

	slot atomic.Pointer[result.State[T]]

	// pubMu serializes publication so subscribers see slot writes in order.
	pubMu      sync.Mutex
	subs       map[uint64]func(result.State[T])
	nextSub    uint64
	generation uint64
	cancelLast context.CancelFunc

	lifeMu sync.RWMutex
	closed bool
}

// New creates a Coordinator. failureMessage is the fixed text published for
// every failed call; the underlying error is only logged.
func New[K comparable, T any](transport Transport[K, T], failureMessage string, opts ...Option) *Coordinator[K, T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Coordinator[K, T]{
		transport:      transport,
		failureMessage: failureMessage,
		opts:           o,
		pool:           pond.NewPool(o.workers),
		subs:           make(map[uint64]func(result.State[T])),
	}
}

// Call tracks one dispatched fetch.
type Call struct {
	done chan struct{}
}

// Done is closed after the call's outcome has been handled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call's outcome has been handled.
func (c *Call) Wait() {
	<-c.done
}

// Fetch publishes Loading, then resolves key through the transport on the
// worker pool.
func (c *Coordinator[K, T]) Fetch(key K) (*Call, error) {
	c.lifeMu.RLock()
	defer c.lifeMu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}

	ctx, cancel := c.callContext()
	gen := c.begin(cancel)

	call := &Call{done: make(chan struct{})}
	c.pool.Submit(func() {
		defer close(call.done)
		defer cancel()
		c.run(ctx, gen, key)
	})

	return call, nil
}

// Current returns the latest published state. ok is false before the first fetch.
func (c *Coordinator[K, T]) Current() (state result.State[T], ok bool) {
	p := c.slot.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Subscribe registers fn for every future publication and returns a function
// that removes it. fn runs while publication is serialized, so it must not
// block or call back into the coordinator.
func (c *Coordinator[K, T]) Subscribe(fn func(result.State[T])) (cancel func()) {
	c.pubMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.pubMu.Lock()
			delete(c.subs, id)
			c.pubMu.Unlock()
		})
	}
}

// Close rejects further fetches and waits for in-flight calls to publish.
func (c *Coordinator[K, T]) Close() {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return
	}
	c.closed = true
	c.lifeMu.Unlock()

	c.pool.StopAndWait()
}

func (c *Coordinator[K, T]) callContext() (context.Context, context.CancelFunc) {
	if c.opts.callTimeout > 0 {
		return context.WithTimeout(context.Background(), c.opts.callTimeout)
	}
	return context.WithCancel(context.Background())
}

// begin starts a new generation and publishes Loading for it.
func (c *Coordinator[K, T]) begin(cancel context.CancelFunc) uint64 {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.generation++
	if c.opts.supersede {
		if c.cancelLast != nil {
			c.cancelLast()
		}
		c.cancelLast = cancel
	}
	c.store(result.Loading[T]())
	return c.generation
}

// resolve publishes the outcome of generation gen. It reports false when the
// outcome was dropped because a newer fetch superseded it.
func (c *Coordinator[K, T]) resolve(gen uint64, s result.State[T]) bool {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	if c.opts.supersede && gen != c.generation {
		return false
	}
	c.store(s)
	return true
}

// store must be called with pubMu held.
func (c *Coordinator[K, T]) store(s result.State[T]) {
	c.slot.Store(&s)
	for _, fn := range c.subs {
		fn(s)
	}
}

func (c *Coordinator[K, T]) run(ctx context.Context, gen uint64, key K) {
	start := time.Now()
	log := c.opts.logger

	payload, err := c.invoke(ctx, key)

	var next result.State[T]
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		log.Warn().
			Err(err).
			Str("coordinator", c.opts.name).
			Interface("key", key).
			Msg("Fetch failed")
		next = result.Failed[T](c.failureMessage)
	} else {
		next = result.Succeeded(payload)
	}

	if !c.resolve(gen, next) {
		outcome = OutcomeSuperseded
		log.Debug().
			Str("coordinator", c.opts.name).
			Interface("key", key).
			Msg("Dropped superseded fetch outcome")
	}

	if c.opts.recorder != nil {
		c.opts.recorder.ObserveFetch(c.opts.name, outcome, time.Since(start))
	}
}

func (c *Coordinator[K, T]) invoke(ctx context.Context, key K) (payload T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTransportPanic, r)
		}
	}()
	return c.transport(ctx, key)
}
