package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

func settingsPath(dir string) string {
	return filepath.Join(dir, "settings.toml")
}

// LoadSettings reads settings.toml from the config dir, creating it
// with defaults on first run. Unknown or missing fields fall back to
// defaults; environment overrides are applied last.
func LoadSettings(dir string) (*Settings, error) {
	cfg := DefaultSettings()
	path := settingsPath(dir)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveSettings(dir, cfg); err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if cfg.Mode != "local" && cfg.Mode != "cloud" {
		cfg.Mode = DefaultSettings().Mode
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = defaultOllamaHost
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func SaveSettings(dir string, cfg *Settings) error {
	f, err := os.OpenFile(settingsPath(dir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
