package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// GenerateVideo extracts an early frame from a video file and encodes
// it as a JPEG thumbnail. The frame is taken near one second in, not
// at zero, because some encoders produce a black first frame. The
// whole extraction runs under a bounded wait so a malformed container
// cannot hang the pipeline.
func (g *Generator) GenerateVideo(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.videoWait)
	defer cancel()

	frame, err := g.grabFrame(ctx, path, "00:00:01")
	if err != nil {
		// Clips shorter than a second have no frame at the seek
		// point; fall back to the very first frame.
		log.Debug().Err(err).Str("path", path).Msg("Frame grab at 1s failed, retrying at start")
		frame, err = g.grabFrame(ctx, path, "")
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, generationError("metadata wait", ctx.Err())
		}
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, generationError("frame decode", err)
	}

	return g.encode(img)
}

func (g *Generator) grabFrame(ctx context.Context, path, seek string) ([]byte, error) {
	args := []string{"-i", path}
	if seek != "" {
		args = append(args, "-ss", seek)
	}
	args = append(args,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, g.ffmpeg, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Debug().Err(err).Str("stderr", truncate(stderr.String(), 500)).Msg("ffmpeg frame grab failed")
		return nil, generationError("frame grab", err)
	}
	if stdout.Len() == 0 {
		return nil, generationError("frame grab", errors.New("no frame produced"))
	}
	return stdout.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
