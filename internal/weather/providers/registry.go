package providers

import (
	"fmt"
	"net/http"

	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

// Provider names accepted by New.
const (
	NameWeatherAPI  = "weatherapi"
	NameOpenWeather = "openweather"
)

// New builds the provider registered under name.
func New(name string, client *http.Client, apiKey string, opts ...ProviderOption) (weather.Provider, error) {
	switch name {
	case NameWeatherAPI:
		return NewWeatherAPIProvider(client, apiKey, opts...), nil
	case NameOpenWeather:
		return NewOpenWeatherProvider(client, apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}
