package weather

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AtharvDutare/Scan-Crop/internal/fetch"
	"github.com/AtharvDutare/Scan-Crop/internal/result"
)

// FailureMessage is published for every failed lookup, whatever the cause.
const FailureMessage = "Failed to Load Data"

// ErrEmptyQuery is returned by Lookup when the place name is blank.
var ErrEmptyQuery = errors.New("weather: query must not be empty")

// Service owns the weather Result State and resolves lookups through a Provider.
type Service struct {
	provider    Provider
	coordinator *fetch.Coordinator[string, Report]
	logger      *zerolog.Logger
}

// NewService creates a Service. opts are passed to the underlying coordinator.
func NewService(logger *zerolog.Logger, provider Provider, opts ...fetch.Option) *Service {
	s := &Service{
		provider: provider,
		logger:   logger,
	}

	opts = append([]fetch.Option{fetch.WithName("weather"), fetch.WithLogger(logger)}, opts...)
	s.coordinator = fetch.New(s.call, FailureMessage, opts...)
	return s
}

func (s *Service) call(ctx context.Context, query string) (Report, error) {
	return s.provider.Current(ctx, query)
}

// Lookup publishes Loading and starts resolving query in the background.
func (s *Service) Lookup(query string) (*fetch.Call, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	s.logger.Debug().
		Str("provider", s.provider.Name()).
		Str("query", query).
		Msg("Weather lookup requested")

	return s.coordinator.Fetch(query)
}

// State returns the latest published lookup state; ok is false before the first lookup.
func (s *Service) State() (result.State[Report], bool) {
	return s.coordinator.Current()
}

// Subscribe registers fn for every state publication. See fetch.Coordinator.Subscribe.
func (s *Service) Subscribe(fn func(result.State[Report])) func() {
	return s.coordinator.Subscribe(fn)
}

// Close waits for in-flight lookups and rejects new ones.
func (s *Service) Close() {
	s.coordinator.Close()
}
