package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// PromptQuery asks for a place to look up.
func PromptQuery() (string, error) {
	var query string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Search location").
				Placeholder("City, postcode or lat,lon").
				Value(&query).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("enter a location")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(query), nil
}
