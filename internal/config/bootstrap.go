package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// EnsureUserConfig returns the path of config.yml inside dataDir, writing
// Default() there first if the file does not exist yet.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrap(err, "stat user config")
	}

	cfg := Default()
	cfg.App.DataDir = dataDir
	if err := SaveAtomic(userPath, cfg); err != nil {
		return "", errors.Wrap(err, "write default config")
	}
	return userPath, nil
}
