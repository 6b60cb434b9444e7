package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

const prefsSection = "app"

// Preferences are application-level options kept in app.ini
type Preferences struct {
	LogLevel     string // "User" or "Developer"
	Display      int    // Display index for debug captures
	TemplatePath string // Forage template asset
	LogToFile    bool   // Tee the activity log to a file in the data directory
}

// DefaultPreferences returns the preferences used when app.ini is absent
func DefaultPreferences() Preferences {
	return Preferences{
		LogLevel:     "User",
		Display:      0,
		TemplatePath: "assets/forage/template.png",
		LogToFile:    true,
	}
}

// LoadPreferences reads app.ini. A missing file yields the defaults.
func LoadPreferences(path string) (Preferences, error) {
	def := DefaultPreferences()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return def, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return def, fmt.Errorf("failed to load preferences: %w", err)
	}

	section := cfg.Section(prefsSection)
	p := Preferences{
		LogLevel:     section.Key("log_level").In(def.LogLevel, []string{"User", "Developer"}),
		Display:      section.Key("display").MustInt(def.Display),
		TemplatePath: section.Key("template_path").MustString(def.TemplatePath),
		LogToFile:    section.Key("log_to_file").MustBool(def.LogToFile),
	}
	return p, nil
}

// SavePreferences writes app.ini
func SavePreferences(path string, p Preferences) error {
	cfg := ini.Empty()
	section := cfg.Section(prefsSection)
	section.Key("log_level").SetValue(p.LogLevel)
	section.Key("display").SetValue(fmt.Sprint(p.Display))
	section.Key("template_path").SetValue(p.TemplatePath)
	section.Key("log_to_file").SetValue(fmt.Sprint(p.LogToFile))

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
