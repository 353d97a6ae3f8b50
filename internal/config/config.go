package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"lumis/internal/models"
)

const defaultOllamaHost = "http://localhost:11434"

type Experiments struct {
	Reasoning bool `toml:"reasoning"`
	Planning  bool `toml:"planning"`
	Verbose   bool `toml:"verbose"`
	Details   bool `toml:"details"`
}

type Settings struct {
	Mode        string      `toml:"mode"`
	Model       string      `toml:"model"`
	OllamaModel string      `toml:"ollama_model"`
	OllamaHost  string      `toml:"ollama_host"`
	Experiments Experiments `toml:"experiments"`
}

var DebugLog *log.Logger

func DefaultSettings() *Settings {
	return &Settings{
		Mode:        models.ModeCloud,
		Model:       "codex",
		OllamaModel: "llama3",
		OllamaHost:  defaultOllamaHost,
	}
}

// Dir returns the Lumis config directory, creating it if needed.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	dir := filepath.Join(configDir, "lumis")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Settings) applyEnvOverrides() {
	if host := os.Getenv("LUMIS_OLLAMA_HOST"); host != "" {
		s.OllamaHost = host
	}
	if model := os.Getenv("LUMIS_OLLAMA_MODEL"); model != "" {
		s.OllamaModel = model
	}
}

// InitDebugLog opens the file-backed debug logger. Enabled by
// LUMIS_DEBUG=1 or the verbose experiment; otherwise DebugLog stays nil
// and callers skip their trace lines.
func InitDebugLog(dir string, verbose bool) {
	debug := os.Getenv("LUMIS_DEBUG")
	if !verbose && debug != "1" && debug != "true" {
		return
	}
	logPath := filepath.Join(dir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open debug log at %s: %v\n", logPath, err)
		return
	}
	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
}

// Debugf writes a trace line when the debug logger is active.
func Debugf(format string, args ...any) {
	if DebugLog != nil {
		DebugLog.Printf(format, args...)
	}
}
