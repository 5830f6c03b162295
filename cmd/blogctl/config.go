package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type config struct {
	baseURL        string
	credentialPath string
	timeout        time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		baseURL: mustGetEnv("BLOG_API_BASE_URL"),
		timeout: 15 * time.Second,
	}

	if raw := os.Getenv("BLOG_API_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return config{}, fmt.Errorf("invalid BLOG_API_TIMEOUT %q", raw)
		}
		cfg.timeout = time.Duration(secs) * time.Second
	}

	stateDir := os.Getenv("BLOGCTL_STATE_DIR")
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return config{}, fmt.Errorf("resolve config dir: %w", err)
		}
		stateDir = filepath.Join(base, "blogctl")
	}
	cfg.credentialPath = filepath.Join(stateDir, "credentials.json")

	return cfg, nil
}

func mustGetEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	fmt.Fprintf(os.Stderr, "missing required environment variable: %s\n", key)
	os.Exit(1)
	return ""
}
