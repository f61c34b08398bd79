package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Capture and transcription modes
const (
	CaptureModeFFmpeg       = "ffmpeg"
	CaptureModeSynthetic    = "synthetic"
	TranscribeModeWhisper   = "whisper"
	TranscribeModeSynthetic = "synthetic"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Capture     CaptureConfig
	Recognition RecognitionConfig
	Monitor     MonitorConfig
	Geocode     GeocodeConfig
	Redis       RedisConfig
	Broadcast   BroadcastConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
	CORSOrigins             []string
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type CaptureConfig struct {
	Mode           string
	FFmpegBin      string
	SegmentSeconds int
	Timeout        time.Duration
}

type RecognitionConfig struct {
	Mode          string
	WhisperBin    string
	WhisperModel  string
	Language      string
	Timeout       time.Duration
	MaxConcurrent int
}

type MonitorConfig struct {
	MinTranscriptChars int
	MissingFeedDelay   time.Duration
	CaptureBackoff     time.Duration
	SyntheticInterval  time.Duration
	ResetOnShutdown    bool
	ResumeActive       bool
}

type GeocodeConfig struct {
	Enabled     bool
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	MinInterval time.Duration
	CacheSize   int // 0 keeps every entry
}

type RedisConfig struct {
	URL         string
	Password    string
	DB          int
	CachePrefix string
}

type BroadcastConfig struct {
	SendTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	segmentSeconds := getEnvInt("SEGMENT_SECONDS", 15)

	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:             getEnvList("SERVER_CORS_ORIGINS", getEnvList("CORS_ORIGINS", []string{"*"})),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Capture: CaptureConfig{
			Mode:           getEnv("CAPTURE_MODE", CaptureModeFFmpeg),
			FFmpegBin:      getEnv("FFMPEG_BIN", "ffmpeg"),
			SegmentSeconds: segmentSeconds,
			Timeout:        getEnvDuration("CAPTURE_TIMEOUT", time.Duration(segmentSeconds)*time.Second+30*time.Second),
		},
		Recognition: RecognitionConfig{
			Mode:          getEnv("TRANSCRIBE_MODE", TranscribeModeWhisper),
			WhisperBin:    getEnv("WHISPER_BIN", ""),
			WhisperModel:  getEnv("WHISPER_MODEL", ""),
			Language:      getEnv("WHISPER_LANGUAGE", "en"),
			Timeout:       getEnvDuration("TRANSCRIBE_TIMEOUT", 2*time.Minute),
			MaxConcurrent: getEnvInt("MAX_CONCURRENT_TRANSCRIPTIONS", 0),
		},
		Monitor: MonitorConfig{
			MinTranscriptChars: getEnvInt("MIN_TRANSCRIPT_CHARS", 6),
			MissingFeedDelay:   getEnvDuration("MONITOR_MISSING_FEED_DELAY", 1*time.Second),
			CaptureBackoff:     getEnvDuration("MONITOR_CAPTURE_BACKOFF", 2*time.Second),
			SyntheticInterval:  getEnvDuration("MONITOR_SYNTHETIC_INTERVAL", 5*time.Second),
			ResetOnShutdown:    getEnvBool("MONITOR_RESET_ON_SHUTDOWN", false),
			ResumeActive:       getEnvBool("MONITOR_RESUME_ACTIVE", true),
		},
		Geocode: GeocodeConfig{
			Enabled:     getEnvBool("GEOCODE_ENABLED", true),
			BaseURL:     getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:   getEnv("GEOCODE_USER_AGENT", "Audio-Stream-Monitor/1.0 (local)"),
			Timeout:     getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),
			MinInterval: getEnvDuration("GEOCODE_MIN_INTERVAL", 1*time.Second),
			CacheSize:   getEnvInt("GEOCODE_CACHE_SIZE", 0),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			CachePrefix: getEnv("REDIS_CACHE_PREFIX", "feedmonitor:geocode:"),
		},
		Broadcast: BroadcastConfig{
			SendTimeout: getEnvDuration("BROADCAST_SEND_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration. Tool paths are checked by the
// monitor at start time, not here.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Capture.SegmentSeconds < 1 {
		return fmt.Errorf("segment seconds must be at least 1")
	}
	switch c.Capture.Mode {
	case CaptureModeFFmpeg, CaptureModeSynthetic:
	default:
		return fmt.Errorf("unknown capture mode: %q", c.Capture.Mode)
	}
	switch c.Recognition.Mode {
	case TranscribeModeWhisper, TranscribeModeSynthetic:
	default:
		return fmt.Errorf("unknown transcribe mode: %q", c.Recognition.Mode)
	}
	if c.Recognition.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent transcriptions must not be negative")
	}
	if c.Monitor.MinTranscriptChars < 0 {
		return fmt.Errorf("min transcript chars must not be negative")
	}
	if c.Geocode.MinInterval < time.Second {
		return fmt.Errorf("geocode min interval must be at least 1s, got %s", c.Geocode.MinInterval)
	}
	if c.Geocode.CacheSize < 0 {
		return fmt.Errorf("geocode cache size must not be negative")
	}
	if c.Broadcast.SendTimeout <= 0 {
		return fmt.Errorf("broadcast send timeout must be positive, got %s", c.Broadcast.SendTimeout)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
