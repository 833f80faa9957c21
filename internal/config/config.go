package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/AtharvDutare/Scan-Crop/internal/common"
	"github.com/AtharvDutare/Scan-Crop/internal/logging"
)

// Weather providers selectable with WEATHER_PROVIDER.
const (
	ProviderWeatherAPI  = "weatherapi"
	ProviderOpenWeather = "openweather"
)

type AppConfig struct {
	Log logging.Config `env:""`

	Port string `env:"PORT,default=8080" validate:"required,numeric"`

	// HTTPTimeout bounds every outbound provider request.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT,default=10s" validate:"gt=0"`

	Weather WeatherConfig `env:""`
	Auth    AuthConfig    `env:""`
	Scan    ScanConfig    `env:""`
}

type WeatherConfig struct {
	Provider          string `env:"WEATHER_PROVIDER,default=weatherapi" validate:"required,oneof=weatherapi openweather"`
	WeatherAPIKey     string `env:"WEATHERAPI_API_KEY"`
	OpenWeatherAPIKey string `env:"OPENWEATHER_API_KEY"`

	// MaxRetries of 0 keeps one request per lookup.
	MaxRetries int `env:"WEATHER_MAX_RETRIES,default=0" validate:"gte=0,lte=10"`
	Workers    int `env:"WEATHER_WORKERS,default=8" validate:"gte=1"`

	// CallTimeout and Supersede are off by default.
	CallTimeout time.Duration `env:"WEATHER_CALL_TIMEOUT,default=0s" validate:"gte=0"`
	Supersede   bool          `env:"WEATHER_SUPERSEDE,default=false"`
}

// APIKey returns the key of the selected provider.
func (w WeatherConfig) APIKey() string {
	if w.Provider == ProviderOpenWeather {
		return w.OpenWeatherAPIKey
	}
	return w.WeatherAPIKey
}

type AuthConfig struct {
	SessionTTL      time.Duration `env:"SESSION_TTL,default=24h" validate:"gt=0"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL,default=1h" validate:"gt=0"`
	PruneInterval   time.Duration `env:"SESSION_PRUNE_INTERVAL,default=15m" validate:"gt=0"`
	BcryptCost      int           `env:"BCRYPT_COST,default=10" validate:"gte=4,lte=31"`
}

type ScanConfig struct {
	StepInterval time.Duration `env:"SCAN_STEP_INTERVAL,default=100ms" validate:"gt=0"`
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*AppConfig, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := common.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
