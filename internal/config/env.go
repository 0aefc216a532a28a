package config

import (
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvDataDir      = "STREMIO_DL_DATA_DIR"
	EnvLogLevel     = "LOG_LEVEL"
	EnvLogFormat    = "LOG_FORMAT"
	EnvLogOutput    = "LOG_OUTPUT"
	EnvMetricsAddr  = "METRICS_ADDR"
	EnvWorkerConfig = "WORKER_CONFIG"
	EnvWatchDir     = "STREMIO_DL_WATCH"
)

// Env holds process-level settings that are not user preferences.
type Env struct {
	DataDir      string
	LogLevel     string
	LogFormat    string
	LogOutput    string
	MetricsAddr  string
	WorkerConfig string
	WatchDir     bool
}

// LoadEnv reads Env from the environment.
func LoadEnv() Env {
	return Env{
		DataDir:      os.Getenv(EnvDataDir),
		LogLevel:     envOr(EnvLogLevel, "info"),
		LogFormat:    envOr(EnvLogFormat, "console"),
		LogOutput:    envOr(EnvLogOutput, "stderr"),
		MetricsAddr:  os.Getenv(EnvMetricsAddr),
		WorkerConfig: os.Getenv(EnvWorkerConfig),
		WatchDir:     envBool(EnvWatchDir, true),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
