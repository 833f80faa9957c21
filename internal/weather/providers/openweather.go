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
	openWeatherBaseURL = "https://api.openweathermap.org"
	openWeatherPath    = "/data/2.5/weather"

	msToKph = 3.6
	msToMph = 2.236936
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...ProviderOption) *OpenWeatherProvider {
	o := newProviderOptions(openWeatherBaseURL, opts)

	return &OpenWeatherProvider{
		name:    NameOpenWeather,
		apiKey:  apiKey,
		baseURL: o.baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: o.backoff,
		},
		circuit: newCircuitBreaker(NameOpenWeather, o.logger),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherPayload struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

func (p *OpenWeatherProvider) Current(ctx context.Context, query string) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("q", query)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, openWeatherPath, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Report{}, fmt.Errorf("openweather: %w", err)
	}
	defer resp.Body.Close()

	var payload openWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Report{}, fmt.Errorf("openweather: %w: %v", errMalformedPayload, err)
	}
	if payload.Name == "" {
		return weather.Report{}, fmt.Errorf("openweather: %w: missing location name", errMalformedPayload)
	}

	observed := time.Now().UTC()
	if payload.Dt != 0 {
		observed = time.Unix(payload.Dt, 0).UTC()
	}

	var text string
	if len(payload.Weather) > 0 {
		text = payload.Weather[0].Description
		if text == "" {
			text = payload.Weather[0].Main
		}
	}

	return weather.Report{
		LocationName:  payload.Name,
		Country:       payload.Sys.Country,
		ObservedAt:    observed,
		TemperatureC:  payload.Main.Temp,
		TemperatureF:  roundTenth(celsiusToFahrenheit(payload.Main.Temp)),
		ConditionText: text,
		Condition:     weather.ClassifyCondition(text),
		HumidityPct:   payload.Main.Humidity,
		WindKph:       roundTenth(payload.Wind.Speed * msToKph),
		WindMph:       roundTenth(payload.Wind.Speed * msToMph),
		CloudPct:      payload.Clouds.All,
	}, nil
}
