// Package capture records fixed-length audio segments from feed sources.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rajasatyajit/FeedMonitor/config"
	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// SegmentFile is the name of the capture output inside a loop's directory
const SegmentFile = "segment.wav"

// FFmpegSource captures mono 16 kHz WAV segments with the ffmpeg CLI
type FFmpegSource struct {
	bin      string
	duration time.Duration
	timeout  time.Duration
}

// NewFFmpegSource creates a source from capture settings
func NewFFmpegSource(cfg config.CaptureConfig) *FFmpegSource {
	return &FFmpegSource{
		bin:      cfg.FFmpegBin,
		duration: time.Duration(cfg.SegmentSeconds) * time.Second,
		timeout:  cfg.Timeout,
	}
}

// Validate checks that the ffmpeg binary can be found
func (s *FFmpegSource) Validate() error {
	if _, err := exec.LookPath(s.bin); err != nil {
		return apperrors.ConfigurationError{
			Component: "ffmpeg",
			Path:      s.bin,
			Err:       fmt.Errorf("%w: %v", apperrors.ErrToolMissing, err),
		}
	}
	return nil
}

func (s *FFmpegSource) args(sourceURL, out string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", sourceURL,
		"-t", strconv.Itoa(int(s.duration / time.Second)),
		"-ac", "1",
		"-ar", "16000",
		"-vn",
		"-f", "wav",
		out,
	}
}

// Capture records one segment from sourceURL into dir
func (s *FFmpegSource) Capture(ctx context.Context, sourceURL, dir string) (*models.Segment, error) {
	out := filepath.Join(dir, SegmentFile)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.bin, s.args(sourceURL, out)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s", apperrors.ErrCaptureFailed, s.timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v: %s", apperrors.ErrCaptureFailed, err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("%w: no output: %v", apperrors.ErrCaptureFailed, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: empty output", apperrors.ErrCaptureFailed)
	}

	return &models.Segment{Path: out, Duration: s.duration}, nil
}
