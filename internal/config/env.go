package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// BrowserConfig controls how Chromium is found and started.
type BrowserConfig struct {
	ChromePath   string
	AutoDownload bool
	Revision     int
	DownloadDir  string
	NoSandbox    bool
	WindowWidth  int
	WindowHeight int
}

// ExportConfig controls export sessions.
type ExportConfig struct {
	OutputDir      string
	FileName       string
	ControlID      string
	PageSize       string
	Scale          float64
	JPEGQuality    int
	CaptureTimeout time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging     LoggingConfig
	Browser     BrowserConfig
	Export      ExportConfig
	MetricsAddr string
}

// Load reads an optional dotenv file and then the environment. Variables
// already set in the environment win over the file. A missing file is
// not an error.
func Load(dotenv string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("SNAPPDF_LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("SNAPPDF_LOG_PRETTY", "true")),
		File:       getEnv("SNAPPDF_LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("SNAPPDF_LOG_MAX_SIZE_MB", "20"), 20),
		MaxBackups: parseInt(getEnv("SNAPPDF_LOG_MAX_BACKUPS", "3"), 3),
		MaxAgeDays: parseInt(getEnv("SNAPPDF_LOG_MAX_AGE_DAYS", "14"), 14),
		Compress:   parseBool(getEnv("SNAPPDF_LOG_COMPRESS", "true")),
	}

	cfg.Browser = BrowserConfig{
		ChromePath:   getEnv("SNAPPDF_CHROME_PATH", ""),
		AutoDownload: parseBool(getEnv("SNAPPDF_AUTO_DOWNLOAD", "false")),
		Revision:     parseInt(getEnv("SNAPPDF_CHROME_REVISION", "0"), 0),
		DownloadDir:  getEnv("SNAPPDF_DOWNLOAD_DIR", ""),
		NoSandbox:    parseBool(getEnv("SNAPPDF_NO_SANDBOX", "false")),
		WindowWidth:  parseInt(getEnv("SNAPPDF_WINDOW_WIDTH", "1280"), 1280),
		WindowHeight: parseInt(getEnv("SNAPPDF_WINDOW_HEIGHT", "900"), 900),
	}

	cfg.Export = ExportConfig{
		OutputDir:      getEnv("SNAPPDF_OUTPUT_DIR", "."),
		FileName:       getEnv("SNAPPDF_FILE_NAME", "storyboard.pdf"),
		ControlID:      getEnv("SNAPPDF_CONTROL_ID", "btn-print"),
		PageSize:       getEnv("SNAPPDF_PAGE_SIZE", "a4"),
		Scale:          parseFloat(getEnv("SNAPPDF_SCALE", "2"), 2),
		JPEGQuality:    parseInt(getEnv("SNAPPDF_JPEG_QUALITY", "95"), 95),
		CaptureTimeout: parseDuration(getEnv("SNAPPDF_CAPTURE_TIMEOUT", ""), 0),
	}

	cfg.MetricsAddr = getEnv("SNAPPDF_METRICS_ADDR", "")
	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
