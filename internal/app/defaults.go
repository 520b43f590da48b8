package app

import (
	"fmt"
	"os"
	"path/filepath"

	"docdisk/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DOCDISK_CONFIG_PATH: config file location (default: ~/.config/docdisk.toml)
//   - DOCDISK_HOME: base directory for docdisk data (default: ~/.local/share/docdisk)
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

func getConfigPath() (string, error) {
	if path := os.Getenv("DOCDISK_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "docdisk.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("DOCDISK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "docdisk"), nil
}

// LoadConfig reads the config file at the default path. A missing file is
// not an error: defaults rooted at the default base dir are used instead.
// DOCDISK_SERVER_URL overrides server_url either way.
func LoadConfig() (*config.Config, string, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	path := defaults["config_path"]

	var cfg *config.Config
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = config.ReadFromFile(path)
		if err != nil {
			return nil, path, err
		}
		if cfg.BaseDir == "" {
			cfg.BaseDir = defaults["base_dir"]
		}
	} else {
		cfg = config.NewConfig(defaults["base_dir"])
	}

	applyEnv(cfg)
	cfg.ApplyDefaults()
	return cfg, path, nil
}

func applyEnv(cfg *config.Config) {
	if url := os.Getenv("DOCDISK_SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
}
