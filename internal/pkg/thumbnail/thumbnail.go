// Package thumbnail produces small preview images from local media
// files without any network involvement.
package thumbnail

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrGeneration marks any thumbnail generation failure: undecodable
// image, unsupported container, ffmpeg timeout. Generation failures
// are local and never block upload.
var ErrGeneration = errors.New("thumbnail generation failed")

// Config for the generator.
type Config struct {
	MaxSide     int           // bounding dimension, aspect preserved (default 400)
	JPEGQuality int           // 1-100 (default 85)
	FFmpegPath  string        // ffmpeg binary (default "ffmpeg")
	VideoWait   time.Duration // bounded wait for video frame extraction (default 10s)
}

// Generator creates thumbnails for images and videos.
type Generator struct {
	maxSide   int
	quality   int
	ffmpeg    string
	videoWait time.Duration
}

// NewGenerator creates a thumbnail generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.MaxSide <= 0 {
		cfg.MaxSide = 400
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.VideoWait <= 0 {
		cfg.VideoWait = 10 * time.Second
	}

	return &Generator{
		maxSide:   cfg.MaxSide,
		quality:   cfg.JPEGQuality,
		ffmpeg:    cfg.FFmpegPath,
		videoWait: cfg.VideoWait,
	}
}

// FileName derives the thumbnail filename from the source filename.
// The name stays associable with the source and is always a JPEG,
// regardless of the source media type.
func FileName(originalName string) string {
	base := filepath.Base(originalName)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_thumb.jpg"
}

func generationError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrGeneration, stage, err)
}
