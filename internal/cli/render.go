package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AtharvDutare/Scan-Crop/internal/result"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Render draws a weather state the way the weather screen shows it.
func Render(s result.State[weather.Report]) string {
	return result.Match(s,
		func() string {
			return dimStyle.Render("Loading...")
		},
		FormatReport,
		func(message string) string {
			return errorStyle.Render(message)
		},
	)
}

// FormatReport lays out a report in imperial units with metric alongside.
func FormatReport(r weather.Report) string {
	place := r.LocationName
	if r.Region != "" {
		place += ", " + r.Region
	}
	if r.Country != "" {
		place += ", " + r.Country
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(place))
	b.WriteByte('\n')
	line(&b, "Temperature", fmt.Sprintf("%.1f°F (%.1f°C)", r.TemperatureF, r.TemperatureC))
	line(&b, "Condition", r.ConditionText)
	line(&b, "Humidity", fmt.Sprintf("%d%%", r.HumidityPct))
	line(&b, "Wind", fmt.Sprintf("%.1f mph", r.WindMph))
	line(&b, "Cloud cover", fmt.Sprintf("%d%%", r.CloudPct))
	return strings.TrimRight(b.String(), "\n")
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label + ":"))
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}
