package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings are the values the CLI persists between runs.
type Settings struct {
	DataDir        string `json:"dataDir,omitempty"`
	CensusAPIKey   string `json:"censusApiKey,omitempty"`
	Offline        bool   `json:"offline,omitempty"`
	StageTablePath string `json:"stageTablePath,omitempty"`
	DataPackPath   string `json:"dataPackPath,omitempty"`
}

// SettingsPath returns $XDG_CONFIG_HOME/match-odds/settings.json (or the
// platform equivalent).
func SettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "match-odds", "settings.json"), nil
}

// DataStoreDir returns $XDG_DATA_HOME/match-odds, or ~/.local/share/match-odds
// when XDG_DATA_HOME is unset.
func DataStoreDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "match-odds"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "match-odds"), nil
}

// LoadSettings reads the settings file. A missing file yields zero settings.
func LoadSettings() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return &s, nil
}

// SaveSettings writes the settings file, creating its directory.
func SaveSettings(s *Settings) error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
