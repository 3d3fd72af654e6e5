package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytmp3server/internal/core/domain"
)

var configKeys = []string{
	"YOUTUBE_MP3_OUTPUT_DIR", "YOUTUBE_MP3_DEFAULT_QUALITY", "YOUTUBE_MP3_TEMP_DIR",
	"YTDLP_PATH", "FFMPEG_PATH", "APP_ADDR", "MAX_CONCURRENT_DOWNLOADS",
	"TASK_HISTORY_LIMIT", "SAVE_THUMBNAIL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"ALLOWED_ORIGINS",
}

// clearEnv blanks every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv(log.New(&bytes.Buffer{}, "", 0))

	if cfg.DefaultQuality != domain.QualityMedium {
		t.Errorf("DefaultQuality = %s, expected medium", cfg.DefaultQuality)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %s, expected %s", cfg.Addr, DefaultAddr)
	}
	if cfg.OutputDir == "" || cfg.TempDir == "" {
		t.Errorf("OutputDir = %q, TempDir = %q, expected defaults", cfg.OutputDir, cfg.TempDir)
	}
	if cfg.MaxConcurrent != 0 || cfg.HistoryLimit != 0 || cfg.SaveThumbnail || cfg.RedisAddr != "" || cfg.AllowedOrigins != nil {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOUTUBE_MP3_OUTPUT_DIR", " /srv/music ")
	t.Setenv("YOUTUBE_MP3_DEFAULT_QUALITY", "HIGH")
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("MAX_CONCURRENT_DOWNLOADS", "3")
	t.Setenv("TASK_HISTORY_LIMIT", "50")
	t.Setenv("SAVE_THUMBNAIL", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg := FromEnv(log.New(&bytes.Buffer{}, "", 0))
	if cfg.OutputDir != "/srv/music" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.DefaultQuality != domain.QualityHigh {
		t.Errorf("DefaultQuality = %s", cfg.DefaultQuality)
	}
	if cfg.Addr != ":9090" || cfg.MaxConcurrent != 3 || cfg.HistoryLimit != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.SaveThumbnail || cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOUTUBE_MP3_DEFAULT_QUALITY", "lossless")
	t.Setenv("MAX_CONCURRENT_DOWNLOADS", "-1")
	t.Setenv("TASK_HISTORY_LIMIT", "many")

	var logs bytes.Buffer
	cfg := FromEnv(log.New(&logs, "", 0))
	if cfg.DefaultQuality != DefaultQuality || cfg.MaxConcurrent != 0 || cfg.HistoryLimit != 0 {
		t.Errorf("cfg = %+v, expected defaults", cfg)
	}
	if n := strings.Count(logs.String(), "WARN"); n != 3 {
		t.Errorf("logged %d warnings, expected 3:\n%s", n, logs.String())
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, even to "".
	os.Unsetenv("APP_ADDR")
	os.Unsetenv("YOUTUBE_MP3_DEFAULT_QUALITY")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("APP_ADDR=:7070\nYOUTUBE_MP3_DEFAULT_QUALITY=low\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("APP_ADDR")
		os.Unsetenv("YOUTUBE_MP3_DEFAULT_QUALITY")
	})

	cfg := Load(log.New(&bytes.Buffer{}, "", 0), path)
	if cfg.Addr != ":7070" || cfg.DefaultQuality != domain.QualityLow {
		t.Errorf("cfg = %+v, expected values from the env file", cfg)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	var logs bytes.Buffer
	cfg := Load(log.New(&logs, "", 0), filepath.Join(t.TempDir(), "missing.env"))
	if !strings.Contains(logs.String(), "No .env file found") {
		t.Errorf("logs = %q", logs.String())
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %s", cfg.Addr)
	}
}

func TestFromEnv_AllowedOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://app.test, ,http://localhost:3000 ")

	cfg := FromEnv(log.New(&bytes.Buffer{}, "", 0))
	expected := []string{"https://app.test", "http://localhost:3000"}
	if strings.Join(cfg.AllowedOrigins, "|") != strings.Join(expected, "|") {
		t.Errorf("AllowedOrigins = %q, expected %q", cfg.AllowedOrigins, expected)
	}
}
