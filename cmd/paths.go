package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/khanhnv2901/seca-pqc/internal/shared/constants"
)

const (
	appDirName    = "seca-pqc"
	dataDirEnvVar = "SECA_PQC_DATA_DIR"
)

// getDataDir returns the appropriate data directory for the current OS
// following XDG Base Directory specification on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	switch {
	case os.Getenv(dataDirEnvVar) != "":
		baseDir = os.Getenv(dataDirEnvVar)

	case runtime.GOOS == "windows":
		// Windows: %LOCALAPPDATA%\seca-pqc
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		baseDir = filepath.Join(baseDir, appDirName)

	case runtime.GOOS == "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)

	default:
		// $XDG_DATA_HOME/seca-pqc > ~/.local/share/seca-pqc
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			baseDir = filepath.Join(xdgDataHome, appDirName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share", appDirName)
		}
	}

	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// getResultsDir returns the default results directory inside the data directory.
func getResultsDir() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}

	resultsDir := filepath.Join(dataDir, "results")
	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	return resultsDir, nil
}

// configFilePath returns the config file in use, or the default location.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "~/.seca-pqc.yaml"
	}
	return filepath.Join(homeDir, ".seca-pqc.yaml")
}
