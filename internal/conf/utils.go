// conf/utils.go helpers for locating configuration
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/ecovision/mantaview/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config.yaml only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("operation", "get-executable-path").
				Build()
		}
		configPaths = []string{
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "mantaview"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "mantaview"),
			"/etc/mantaview",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}
