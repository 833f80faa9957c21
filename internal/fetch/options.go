package fetch

import (
	"time"

	"github.com/rs/zerolog"
)

const defaultWorkers = 8

type options struct {
	name        string
	workers     int
	callTimeout time.Duration
	supersede   bool
	logger      *zerolog.Logger
	recorder    Recorder
}

func defaultOptions() options {
	nop := zerolog.Nop()
	return options{
		name:    "fetch",
		workers: defaultWorkers,
		logger:  &nop,
	}
}

// Option configures a Coordinator.
type Option func(*options)

// WithName labels log lines and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithWorkers bounds how many transport calls run at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCallTimeout puts a deadline on every transport call. Zero means none.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		o.callTimeout = d
	}
}

// WithSupersede makes a new fetch cancel the previous in-flight call and
// drop its outcome, instead of letting the last call to complete win.
func WithSupersede() Option {
	return func(o *options) {
		o.supersede = true
	}
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}
