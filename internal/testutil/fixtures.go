package testutil

import (
	"embed"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// MustFixture loads a fixture file, panicking if it is missing.
func MustFixture(name string) []byte {
	data, err := LoadFixture(name)
	if err != nil {
		panic(err)
	}
	return data
}

// ValidSettings returns a settings file overriding every default.
func ValidSettings() []byte {
	return MustFixture("settings_valid.toml")
}

// InvalidSettings returns a settings file that parses but fails validation.
func InvalidSettings() []byte {
	return MustFixture("settings_invalid.toml")
}

// CamelCasePreferences returns a preferences document using camelCase keys.
func CamelCasePreferences() []byte {
	return MustFixture("preferences_camel.json")
}

// SnakeCasePreferences returns a preferences document using snake_case keys.
func SnakeCasePreferences() []byte {
	return MustFixture("preferences_snake.json")
}
