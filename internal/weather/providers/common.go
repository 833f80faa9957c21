package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero sends each request exactly once.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

// StatusError reports a non-2xx response from a provider.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

var (
	errRateLimited      = errors.New("rate limited")
	errServerError      = errors.New("server error")
	errCircuitOpen      = errors.New("circuit breaker open")
	errNoHTTPClient     = errors.New("http client not configured")
	errInvalidConfig    = errors.New("invalid backoff configuration")
	errMalformedPayload = errors.New("malformed payload")
	errMissingAPIKey    = errors.New("api key is not configured")
)

func defaultBackoff() BackoffConfig {
	return BackoffConfig{
		MaxRetries:      0,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func newCircuitBreaker(name string, logger *zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// doRequestWithResilience executes the HTTP request with optional retries,
// exponential backoff, and a circuit breaker. Only transport errors, 429 and
// 5xx count against the breaker; other non-2xx statuses are returned as a
// *StatusError without retrying.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		out, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				drainAndClose(resp)
				return nil, fmt.Errorf("%w: %w", errRateLimited, &StatusError{Code: resp.StatusCode})
			}
			if resp.StatusCode >= 500 {
				drainAndClose(resp)
				return nil, fmt.Errorf("%w: %w", errServerError, &StatusError{Code: resp.StatusCode})
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := out.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				drainAndClose(resp)
				return nil, &StatusError{Code: resp.StatusCode}
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if attempt >= cfg.Backoff.MaxRetries {
			return nil, err
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// ProviderOption customizes a provider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	baseURL string
	backoff BackoffConfig
	logger  *zerolog.Logger
}

func newProviderOptions(defaultBaseURL string, opts []ProviderOption) providerOptions {
	nop := zerolog.Nop()
	o := providerOptions{
		baseURL: defaultBaseURL,
		backoff: defaultBackoff(),
		logger:  &nop,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBaseURL points the provider at a different host, e.g. a test server.
func WithBaseURL(u string) ProviderOption {
	return func(o *providerOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

func WithBackoff(b BackoffConfig) ProviderOption {
	return func(o *providerOptions) {
		o.backoff = b
	}
}

func WithLogger(logger *zerolog.Logger) ProviderOption {
	return func(o *providerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
