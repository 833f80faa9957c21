package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/huh/spinner"

	"github.com/AtharvDutare/Scan-Crop/internal/cli"
	"github.com/AtharvDutare/Scan-Crop/internal/config"
	"github.com/AtharvDutare/Scan-Crop/internal/result"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
	"github.com/AtharvDutare/Scan-Crop/internal/weather/providers"
)

func main() {
	verbose := flag.Bool("v", false, "verbose mode - show detailed logs")
	flag.BoolVar(verbose, "verbose", false, "verbose mode - show detailed logs")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: cropscan-cli [OPTIONS] [location]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Looks up the current weather. Prompts for a location when none is given.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Options:")
		fmt.Fprintln(os.Stderr, "  -v, --verbose        Show detailed logs")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Environment:")
		fmt.Fprintln(os.Stderr, "  WEATHER_PROVIDER     weatherapi (default) or openweather")
		fmt.Fprintln(os.Stderr, "  WEATHERAPI_API_KEY   key for weatherapi.com")
		fmt.Fprintln(os.Stderr, "  OPENWEATHER_API_KEY  key for openweathermap.org")
	}
	flag.Parse()

	logger := cli.InitLogger(*verbose)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	query := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(query) == "" {
		query, err = cli.PromptQuery()
		if err != nil {
			logger.Error("Prompt cancelled", "error", err)
			os.Exit(1)
		}
	}

	svcLogger := cli.ServiceLogger(*verbose, os.Stderr)

	provider, err := providers.New(cfg.Weather.Provider, &http.Client{Timeout: cfg.HTTPTimeout}, cfg.Weather.APIKey(),
		providers.WithLogger(svcLogger),
	)
	if err != nil {
		logger.Error("Unsupported provider", "error", err)
		os.Exit(1)
	}
	logger.Debug("Using provider", "provider", provider.Name())

	service := weather.NewService(svcLogger, provider)
	defer service.Close()

	unsubscribe := service.Subscribe(func(s result.State[weather.Report]) {
		logger.Debug("State changed", "status", s.Kind())
	})
	defer unsubscribe()

	call, err := service.Lookup(query)
	if err != nil {
		logger.Error("Lookup rejected", "error", err)
		os.Exit(1)
	}

	err = spinner.New().
		Title(fmt.Sprintf("Looking up %s...", query)).
		Action(call.Wait).
		Run()
	if err != nil {
		call.Wait()
	}

	state, _ := service.State()
	fmt.Println(cli.Render(state))

	if state.Kind() == result.KindError {
		service.Close()
		os.Exit(1)
	}
}
