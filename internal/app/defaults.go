package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - TABWARD_CONFIG_PATH: config file location (default: ~/.config/tabward.toml)
//   - TABWARD_HOME: base directory for tabward data (default: ~/.local/share/tabward)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking TABWARD_CONFIG_PATH env
// var first, then falling back to the default ~/.config/tabward.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("TABWARD_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "tabward.toml"), nil
}

// getBaseDir returns the base directory for tabward data, checking TABWARD_HOME
// env var first, then falling back to the XDG default ~/.local/share/tabward.
func getBaseDir() (string, error) {
	if path := os.Getenv("TABWARD_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "tabward"), nil
}
