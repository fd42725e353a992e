package output

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestColorOutputMatchesCategory(t *testing.T) {
	// Ensure colors are enabled for this test
	ForceColor()
	defer NoColor()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Map of update categories to their expected ANSI color codes
	categoryColorCodes := map[string]string{
		"major":             "\x1b[31;1m", // Red bold
		"minor":             "\x1b[33m",   // Yellow
		"future":            "\x1b[35m",   // Magenta
		"confidence_update": "\x1b[36m",   // Cyan
	}

	categoryGen := gen.OneConstOf("major", "minor", "future", "confidence_update")

	properties.Property("FormatCategory contains correct ANSI code for category", prop.ForAll(
		func(category string) bool {
			formatted := FormatCategory(category)
			expectedCode := categoryColorCodes[category]
			return strings.Contains(formatted, expectedCode)
		},
		categoryGen,
	))

	properties.Property("CategoryColor returns non-nil color for known category", prop.ForAll(
		func(category string) bool {
			c := CategoryColor(category)
			return c != nil
		},
		categoryGen,
	))

	properties.Property("FormatCategory output contains the category text", prop.ForAll(
		func(category string) bool {
			formatted := FormatCategory(category)
			return strings.Contains(formatted, category)
		},
		categoryGen,
	))

	properties.TestingRun(t)
}

func TestNoColorFlagDisablesANSICodes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	categoryGen := gen.OneConstOf("major", "minor", "future", "confidence_update", "unknown")

	// Generator for arbitrary strings to test with Sprint/Sprintf
	stringGen := gen.AnyString()

	properties.Property("FormatCategory contains no ANSI codes when NoColor is set", prop.ForAll(
		func(category string) bool {
			NoColor()
			defer ForceColor()

			formatted := FormatCategory(category)
			// ANSI escape sequences start with \x1b[ or \033[
			return !strings.Contains(formatted, "\x1b[") && !strings.Contains(formatted, "\033[")
		},
		categoryGen,
	))

	properties.Property("Sprintf contains no ANSI codes when NoColor is set", prop.ForAll(
		func(text string) bool {
			NoColor()
			defer ForceColor()

			// Test with various color types
			colors := []*color.Color{Major, Minor, Future, Confidence, Success, Error, Info, Warning}
			for _, c := range colors {
				result := Sprintf(c, "%s", text)
				if strings.Contains(result, "\x1b[") || strings.Contains(result, "\033[") {
					return false
				}
			}
			return true
		},
		stringGen,
	))

	properties.Property("FormatLibrary contains no ANSI codes when NoColor is set", prop.ForAll(
		func(name, version string) bool {
			NoColor()
			defer ForceColor()

			formatted := FormatLibrary(name, version)
			return !strings.Contains(formatted, "\x1b[") && !strings.Contains(formatted, "\033[")
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
