package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/batamp/batamp-explorer/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory, then the user config directory, then the
// system-wide directory on Unix. If one of them holds a config.yaml only
// that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-config-directory").
			Build()
	}

	configPaths := []string{".", filepath.Join(configDir, "batamp")}
	if runtime.GOOS != "windows" {
		configPaths = append(configPaths, "/etc/batamp")
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}

// FindConfigFile locates config.yaml in the default search paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Component("conf").
		Category(errors.CategoryNotFound).
		Context("operation", "find-config-file").
		Build()
}

// ExpandPath expands environment variables in path and cleans it.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(os.ExpandEnv(path))
}
