package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server (localhost control API)
	Port string
	Env  string

	// Backend (portfolio REST API)
	BackendBaseURL string
	BackendToken   string
	BackendTimeout time.Duration

	// CORS (dashboard origin)
	AllowedOrigins []string

	// Queue limits
	MaxFiles     int   // staged + in-flight uploads combined
	MaxImageSize int64 // bytes
	MaxVideoSize int64 // bytes

	// Thumbnails
	ThumbMaxSide     int
	ThumbJPEGQuality int
	FFmpegPath       string
	VideoProbeWait   time.Duration

	// Previews
	PreviewDir string
	SpoolDir   string

	// Upload queue
	SuccessDismissAfter time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	// Load .env file in development
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8080/api/v1"),
		BackendToken:   getEnv("BACKEND_TOKEN", ""),
		BackendTimeout: parseDuration(getEnv("BACKEND_TIMEOUT", "60s"), 60*time.Second),

		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		MaxFiles:     parseInt(getEnv("MAX_FILES", "10"), 10),
		MaxImageSize: parseInt64(getEnv("MAX_IMAGE_SIZE", "10485760"), 10*1024*1024),
		MaxVideoSize: parseInt64(getEnv("MAX_VIDEO_SIZE", "209715200"), 200*1024*1024),

		ThumbMaxSide:     parseInt(getEnv("THUMB_MAX_SIDE", "400"), 400),
		ThumbJPEGQuality: parseInt(getEnv("THUMB_JPEG_QUALITY", "85"), 85),
		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		VideoProbeWait:   parseDuration(getEnv("VIDEO_PROBE_WAIT", "10s"), 10*time.Second),

		PreviewDir: getEnv("PREVIEW_DIR", ""),
		SpoolDir:   getEnv("SPOOL_DIR", filepath.Join(os.TempDir(), "media-agent-spool")),

		SuccessDismissAfter: parseDuration(getEnv("SUCCESS_DISMISS_AFTER", "3s"), 3*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseInt(s string, defaultValue int) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseInt64(s string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
