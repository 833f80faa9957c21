package weather

import (
	"time"

	"github.com/AtharvDutare/Scan-Crop/internal/common"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// ClassifyCondition maps a provider's free-text description to a Condition.
func ClassifyCondition(text string) Condition {
	switch {
	case text == "":
		return ConditionUnknown
	case common.HasAnyFold(text, "thunder", "storm"):
		return ConditionStorm
	case common.HasAnyFold(text, "snow", "sleet", "blizzard", "ice pellets"):
		return ConditionSnow
	case common.HasAnyFold(text, "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAnyFold(text, "mist", "fog", "haze"):
		return ConditionMist
	case common.HasAnyFold(text, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAnyFold(text, "sunny", "clear"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// Report is the current-conditions payload for one looked-up place.
type Report struct {
	LocationName string    `json:"locationName"`
	Region       string    `json:"region,omitempty"`
	Country      string    `json:"country,omitempty"`
	ObservedAt   time.Time `json:"observedAt"` // always UTC

	TemperatureC float64 `json:"temperatureC"`
	TemperatureF float64 `json:"temperatureF"`

	ConditionText string    `json:"conditionText"`
	Condition     Condition `json:"condition"`

	HumidityPct int     `json:"humidityPercent"`
	WindKph     float64 `json:"windKph"`
	WindMph     float64 `json:"windMph"`
	CloudPct    int     `json:"cloudPercent"`
}
