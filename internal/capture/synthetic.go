package capture

import (
	"context"
	"time"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// SyntheticSource produces no audio. It paces the pipeline by waiting
// interval before returning an empty segment.
type SyntheticSource struct {
	interval time.Duration
}

func NewSyntheticSource(interval time.Duration) *SyntheticSource {
	return &SyntheticSource{interval: interval}
}

func (s *SyntheticSource) Validate() error { return nil }

func (s *SyntheticSource) Capture(ctx context.Context, sourceURL, dir string) (*models.Segment, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.interval):
	}
	return &models.Segment{Duration: s.interval}, nil
}

// Source is implemented by every capture backend
type Source interface {
	Validate() error
	Capture(ctx context.Context, sourceURL, dir string) (*models.Segment, error)
}

// New selects the backend named by cfg.Capture.Mode
func New(cfg *config.Config) Source {
	if cfg.Capture.Mode == config.CaptureModeSynthetic {
		return NewSyntheticSource(cfg.Monitor.SyntheticInterval)
	}
	return NewFFmpegSource(cfg.Capture)
}
