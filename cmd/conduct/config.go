package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all conduct engine configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath   string `json:"db_path"`
	LogLevel string `json:"log_level"`
	TenantID string `json:"tenant_id"`
}

func defaultConfig() Config {
	return Config{
		DBPath:   filepath.Join(conductDir(), "conduct.db"),
		LogLevel: "info",
		TenantID: "default",
	}
}

func conductDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".conduct"
	}
	return filepath.Join(home, ".conduct")
}

func settingsPath() string {
	return filepath.Join(conductDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("CONDUCT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CONDUCT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CONDUCT_TENANT_ID"); v != "" {
		cfg.TenantID = v
	}

	return cfg
}
