package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MaxKeys caps the credential failover list.
const MaxKeys = 5

type credentialsFile struct {
	Keys []string `toml:"keys"`
}

func credentialsPath(dir string) string {
	return filepath.Join(dir, "credentials.toml")
}

// LoadKeys returns the ordered API key list. Order is failover
// priority. Missing or unreadable files yield an empty list rather
// than an error so cloud mode can report the problem itself.
func LoadKeys(dir string) []string {
	var cf credentialsFile
	if _, err := toml.DecodeFile(credentialsPath(dir), &cf); err != nil {
		return nil
	}
	keys := make([]string, 0, MaxKeys)
	for _, k := range cf.Keys {
		if k == "" {
			continue
		}
		keys = append(keys, k)
		if len(keys) == MaxKeys {
			break
		}
	}
	return keys
}

func SaveKeys(dir string, keys []string) error {
	if len(keys) > MaxKeys {
		keys = keys[:MaxKeys]
	}
	f, err := os.OpenFile(credentialsPath(dir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(credentialsFile{Keys: keys})
}
