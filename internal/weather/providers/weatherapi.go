package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

const (
	weatherAPIBaseURL = "https://api.weatherapi.com"
	weatherAPIPath    = "/v1/current.json"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ...ProviderOption) *WeatherAPIProvider {
	o := newProviderOptions(weatherAPIBaseURL, opts)

	return &WeatherAPIProvider{
		name:    NameWeatherAPI,
		apiKey:  apiKey,
		baseURL: o.baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: o.backoff,
		},
		circuit: newCircuitBreaker(NameWeatherAPI, o.logger),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIPayload struct {
	Location struct {
		Name           string `json:"name"`
		Region         string `json:"region"`
		Country        string `json:"country"`
		LocaltimeEpoch int64  `json:"localtime_epoch"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64   `json:"last_updated_epoch"`
		TempC            float64 `json:"temp_c"`
		TempF            float64 `json:"temp_f"`
		Condition        struct {
			Text string `json:"text"`
		} `json:"condition"`
		WindMph  float64 `json:"wind_mph"`
		WindKph  float64 `json:"wind_kph"`
		Humidity int     `json:"humidity"`
		Cloud    int     `json:"cloud"`
	} `json:"current"`
}

func (p *WeatherAPIProvider) Current(ctx context.Context, query string) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", query)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, weatherAPIPath, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Report{}, fmt.Errorf("weatherapi: %w", err)
	}
	defer resp.Body.Close()

	var payload weatherAPIPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Report{}, fmt.Errorf("weatherapi: %w: %v", errMalformedPayload, err)
	}
	if payload.Location.Name == "" {
		return weather.Report{}, fmt.Errorf("weatherapi: %w: missing location name", errMalformedPayload)
	}

	epoch := payload.Current.LastUpdatedEpoch
	if epoch == 0 {
		epoch = payload.Location.LocaltimeEpoch
	}
	observed := time.Now().UTC()
	if epoch != 0 {
		observed = time.Unix(epoch, 0).UTC()
	}

	return weather.Report{
		LocationName:  payload.Location.Name,
		Region:        payload.Location.Region,
		Country:       payload.Location.Country,
		ObservedAt:    observed,
		TemperatureC:  payload.Current.TempC,
		TemperatureF:  payload.Current.TempF,
		ConditionText: payload.Current.Condition.Text,
		Condition:     weather.ClassifyCondition(payload.Current.Condition.Text),
		HumidityPct:   payload.Current.Humidity,
		WindKph:       payload.Current.WindKph,
		WindMph:       payload.Current.WindMph,
		CloudPct:      payload.Current.Cloud,
	}, nil
}
