package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"ytmp3server/internal/core/domain"
)

const (
	DefaultAddr    = ":8080"
	DefaultQuality = domain.QualityMedium
)

// Config holds the runtime configuration of the server and CLI.
type Config struct {
	// OutputDir receives audio files when a request names no directory.
	OutputDir      string
	DefaultQuality domain.Quality
	TempDir        string

	YtDlpPath  string
	FFmpegPath string

	Addr string
	// MaxConcurrent caps simultaneous extractions; 0 means unlimited.
	MaxConcurrent int
	// HistoryLimit bounds finished tasks kept in memory; 0 means unbounded.
	HistoryLimit  int
	SaveThumbnail bool
	// AllowedOrigins may open websocket streams besides same-origin pages.
	AllowedOrigins []string

	// Redis (optional). If RedisAddr is empty, task history is not persisted.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads .env files (if present) and then the environment.
func Load(logger *log.Logger, envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil {
		// It's okay if .env doesn't exist, environment variables might be set manually
		logger.Println("No .env file found")
	}
	return FromEnv(logger)
}

// FromEnv builds a Config from environment variables only.
func FromEnv(logger *log.Logger) *Config {
	quality := DefaultQuality
	if v := os.Getenv("YOUTUBE_MP3_DEFAULT_QUALITY"); strings.TrimSpace(v) != "" {
		q, err := domain.ParseQuality(v)
		if err != nil {
			logger.Printf("WARN: %v, using default: %s", err, DefaultQuality)
		} else {
			quality = q
		}
	}

	return &Config{
		OutputDir:      valueOrDefault(os.Getenv("YOUTUBE_MP3_OUTPUT_DIR"), defaultOutputDir()),
		DefaultQuality: quality,
		TempDir:        valueOrDefault(os.Getenv("YOUTUBE_MP3_TEMP_DIR"), os.TempDir()),
		YtDlpPath:      os.Getenv("YTDLP_PATH"),
		FFmpegPath:     os.Getenv("FFMPEG_PATH"),
		Addr:           valueOrDefault(os.Getenv("APP_ADDR"), DefaultAddr),
		MaxConcurrent:  nonNegativeInt(logger, "MAX_CONCURRENT_DOWNLOADS", 0),
		HistoryLimit:   nonNegativeInt(logger, "TASK_HISTORY_LIMIT", 0),
		SaveThumbnail:  boolValue(os.Getenv("SAVE_THUMBNAIL")),
		AllowedOrigins: listValue(os.Getenv("ALLOWED_ORIGINS")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        nonNegativeInt(logger, "REDIS_DB", 0),
	}
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "downloads"
	}
	return filepath.Join(home, "Downloads")
}

// valueOrDefault returns fallback if s is empty
func valueOrDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func nonNegativeInt(logger *log.Logger, key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Printf("WARN: %s=%q is not a non-negative integer, using default: %d", key, v, fallback)
		return fallback
	}
	return n
}

// listValue splits a comma-separated list, dropping empty items.
func listValue(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func boolValue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
