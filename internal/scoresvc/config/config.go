package config

import (
	"os"
	"strconv"
)

type Config struct {
	DataDir       string // directory holding the persisted game records
	StoragePrefix string // key namespace, one logical profile per prefix
	Port          string
	RateLimit     int // requests per minute per IP
}

func Load() Config {
	cfg := Config{
		DataDir:       os.Getenv("DATA_DIR"),
		StoragePrefix: os.Getenv("STORAGE_PREFIX"),
		Port:          os.Getenv("SCORE_SERVICE_PORT"),
		RateLimit:     300,
	}
	if cfg.DataDir == "" {
		cfg.DataDir = ".data"
	}
	if cfg.StoragePrefix == "" {
		cfg.StoragePrefix = "scorekeeper"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit = n
		}
	}
	return cfg
}
