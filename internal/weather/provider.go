package weather

import "context"

// Provider abstracts a current-conditions weather source (WeatherAPI.com, OpenWeatherMap).
// It performs exactly one request/response exchange per call.
type Provider interface {
	Name() string
	Current(ctx context.Context, query string) (Report, error)
}
