package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMissingKey marks a required setting that is absent or malformed
var ErrMissingKey = errors.New("missing required setting")

// File names inside the data directory
const (
	ForageFile        = "forage_settings.yaml"
	ReincarnationFile = "rein_settings.yaml"
	BloodlinesFile    = "bloodlines.yaml"
	PreferencesFile   = "app.ini"
	HistoryFile       = "history.db"
	ActivityLogFile   = "bot_activity.log"
)

// DataDir returns the folder all user files live in, creating it if needed.
// Falls back to the working directory when Documents is unavailable.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err == nil {
		dir := filepath.Join(home, "Documents", "Unified Bot Logs")
		if err := os.MkdirAll(dir, 0755); err == nil {
			return dir
		}
	}
	return "."
}

// loadOrCreate decodes path into v. A missing file is created from v's
// current (default) contents.
func loadOrCreate(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return save(path, v)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// save writes v to path through a temp file so a crash never leaves a torn file
func save(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func missing(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMissingKey, fmt.Sprintf(format, args...))
}
