package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the application paths used when the config file does not say otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
	DataDir    string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - BASKET_CONFIG_PATH: config file location (default: ~/.config/basket.toml)
//   - BASKET_HOME: base directory for basket data (default: ~/.local/share/basket)
func GetDefaults() (*Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		DataDir:    filepath.Join(baseDir, "data"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("BASKET_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "basket.toml"), nil
}

// getBaseDir follows the XDG layout unless BASKET_HOME is set.
func getBaseDir() (string, error) {
	if path := os.Getenv("BASKET_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "basket"), nil
}
