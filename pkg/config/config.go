package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

const (
	xdgAppName = "daypilot"
	configFile = "config.json"
)

type Config struct {
	ListenAddr   string `json:"listenAddr"`
	Timezone     string `json:"timezone"`
	DatabasePath string `json:"databasePath"`
	StatePath    string `json:"statePath"`
	GeminiAPIKey string `json:"geminiApiKey,omitempty"`
	JWTSecret    string `json:"jwtSecret,omitempty"`
}

func GetConfigDir() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file, filling in defaults for anything missing.
// Environment variables override the file: DAYPILOT_LISTEN_ADDR,
// DAYPILOT_TIMEZONE, DAYPILOT_DB, DAYPILOT_STATE, GEMINI_API_KEY,
// DAYPILOT_JWT_SECRET.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	for _, e := range []struct {
		key string
		dst *string
	}{
		{"DAYPILOT_LISTEN_ADDR", &cfg.ListenAddr},
		{"DAYPILOT_TIMEZONE", &cfg.Timezone},
		{"DAYPILOT_DB", &cfg.DatabasePath},
		{"DAYPILOT_STATE", &cfg.StatePath},
		{"GEMINI_API_KEY", &cfg.GeminiAPIKey},
		{"DAYPILOT_JWT_SECRET", &cfg.JWTSecret},
	} {
		if v := os.Getenv(e.key); v != "" {
			*e.dst = v
		}
	}
}

func applyDefaults(cfg *Config) error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = timezone.DefaultZone
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(dir, "daypilot.db")
	}
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(dir, "state.json")
	}
	return nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
