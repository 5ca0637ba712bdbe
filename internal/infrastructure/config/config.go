package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/paths"
)

type Config struct {
	// OBS control-plane endpoint. Authentication is expected to be disabled.
	OBSWebSocketURL string
	OBSPort         int

	LogLevel    string
	MetricsAddr string // empty disables the /metrics listener

	// Filesystem layout. Defaults come from internal/paths.
	RecordingsBase string
	VideosDir      string
	ConfigDir      string
	OBSPath        string

	// Connection behavior.
	ConnectRetries    int
	ConnectRetryDelay time.Duration
	RequestTimeout    time.Duration

	// OBS launch detection.
	LaunchPollRetries  int
	LaunchPollInterval time.Duration
}

func FromEnv() Config {
	cfg := Config{
		OBSWebSocketURL:    getEnv("OBS_WEBSOCKET_URL", "ws://localhost:4455"),
		OBSPort:            getEnvInt("OBS_WEBSOCKET_PORT", 4455),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
		RecordingsBase:     getEnv("RECORDINGS_BASE", paths.RecordingsBase()),
		VideosDir:          getEnv("VIDEOS_DIR", paths.VideosDir()),
		ConfigDir:          getEnv("CONFIG_DIR", paths.ConfigDir()),
		OBSPath:            getEnv("OBS_PATH", paths.OBSPath()),
		ConnectRetries:     getEnvInt("OBS_CONNECT_RETRIES", 30),
		ConnectRetryDelay:  getEnvDuration("OBS_CONNECT_RETRY_DELAY", time.Second),
		RequestTimeout:     getEnvDuration("OBS_REQUEST_TIMEOUT", 10*time.Second),
		LaunchPollRetries:  getEnvInt("OBS_LAUNCH_POLL_RETRIES", 20),
		LaunchPollInterval: getEnvDuration("OBS_LAUNCH_POLL_INTERVAL", time.Second),
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
