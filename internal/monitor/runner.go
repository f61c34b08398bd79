// Package monitor runs one capture/transcribe/geocode/publish loop per
// active feed and tracks which feeds are running.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/classifier"
	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/metrics"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
	"github.com/rajasatyajit/FeedMonitor/pkg/utils"
)

// Store is the storage the pipeline reads feeds from and writes results to
type Store interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	GetFeed(ctx context.Context, id int64) (*models.Feed, error)
	SetFeedStatus(ctx context.Context, id int64, status models.FeedStatus) error
	CreateResult(ctx context.Context, result *models.TranscriptionResult) (*models.TranscriptionResult, error)
}

// SegmentSource captures one audio segment into dir
type SegmentSource interface {
	Validate() error
	Capture(ctx context.Context, sourceURL, dir string) (*models.Segment, error)
}

// Transcriber turns a segment into text
type Transcriber interface {
	Validate() error
	Transcribe(ctx context.Context, seg *models.Segment) (models.Transcript, error)
}

// Extractor finds a location phrase in free text
type Extractor interface {
	Extract(text string) (string, bool)
}

// Geocoder resolves a location query; nil means no result
type Geocoder interface {
	Geocode(ctx context.Context, query string) *models.Location
}

// Publisher delivers persisted results to live subscribers
type Publisher interface {
	Publish(ctx context.Context, result models.TranscriptionResult)
}

// Options tune the runner loop
type Options struct {
	MinTranscriptChars          int
	MissingFeedDelay            time.Duration
	CaptureBackoff              time.Duration
	GeocodeEnabled              bool
	// MaxConcurrentTranscriptions caps recognition work across all feeds;
	// 0 leaves every feed free to transcribe at once
	MaxConcurrentTranscriptions int
	PersistTimeout              time.Duration
	// WorkDir is where per-feed temp directories are created; empty uses the OS default
	WorkDir string
}

// OptionsFromConfig maps service configuration to runner options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinTranscriptChars:          cfg.Monitor.MinTranscriptChars,
		MissingFeedDelay:            cfg.Monitor.MissingFeedDelay,
		CaptureBackoff:              cfg.Monitor.CaptureBackoff,
		GeocodeEnabled:              cfg.Geocode.Enabled,
		MaxConcurrentTranscriptions: cfg.Recognition.MaxConcurrent,
		PersistTimeout:              10 * time.Second,
	}
}

// Runner executes pipeline loops. One Runner is shared by every feed; when
// configured, the transcription gate it holds bounds recognition work across
// all of them.
type Runner struct {
	store       Store
	source      SegmentSource
	transcriber Transcriber
	extractor   Extractor
	geocoder    Geocoder
	publisher   Publisher
	opts        Options
	sem         *semaphore.Weighted
}

// NewRunner creates a runner. geocoder may be nil when geocoding is off.
func NewRunner(store Store, source SegmentSource, transcriber Transcriber, extractor Extractor,
	geocoder Geocoder, publisher Publisher, opts Options) *Runner {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	r := &Runner{
		store:       store,
		source:      source,
		transcriber: transcriber,
		extractor:   extractor,
		geocoder:    geocoder,
		publisher:   publisher,
		opts:        opts,
	}
	if opts.MaxConcurrentTranscriptions > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrentTranscriptions))
	}
	return r
}

// Validate checks the capture and recognition tools
func (r *Runner) Validate() error {
	var errs apperrors.MultiError
	errs.Add(r.source.Validate())
	errs.Add(r.transcriber.Validate())
	return errs.ErrorOrNil()
}

// Run loops until ctx is cancelled. It returns early only when validation
// fails, after marking the feed as errored.
func (r *Runner) Run(ctx context.Context, feedID int64) error {
	log := logger.With("feed_id", feedID)

	if err := r.Validate(); err != nil {
		log.Error("Runtime validation failed", "error", err)
		r.setStatus(ctx, log, feedID, models.StatusError)
		return apperrors.PipelineError{Feed: feedID, Stage: apperrors.StageValidate, Err: err}
	}

	dir, err := os.MkdirTemp(r.opts.WorkDir, fmt.Sprintf("feed-%d-", feedID))
	if err != nil {
		cfgErr := apperrors.ConfigurationError{Component: "workdir", Path: r.opts.WorkDir, Err: err}
		log.Error("Cannot create work directory", "error", cfgErr)
		r.setStatus(ctx, log, feedID, models.StatusError)
		return apperrors.PipelineError{Feed: feedID, Stage: apperrors.StageValidate, Err: cfgErr}
	}
	defer os.RemoveAll(dir)

	log.Info("Monitor started", "work_dir", dir)
	l := &loop{Runner: r, feedID: feedID, dir: dir, log: log, status: models.StatusActive}
	for ctx.Err() == nil {
		l.iterate(ctx)
	}
	log.Info("Monitor stopped")
	return nil
}

// loop is the state of one feed's run
type loop struct {
	*Runner
	feedID int64
	dir    string
	log    *slog.Logger
	status models.FeedStatus
}

func (l *loop) iterate(ctx context.Context) {
	defer clearDir(l.dir)

	feed, err := l.store.GetFeed(ctx, l.feedID)
	if err != nil || feed == nil {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.log.Warn("Feed lookup failed", "error", err)
		} else {
			l.log.Debug("Feed not found, waiting")
		}
		metrics.RecordIteration("missing_feed")
		sleep(ctx, l.opts.MissingFeedDelay)
		return
	}

	start := time.Now()
	seg, err := l.source.Capture(ctx, feed.URL, l.dir)
	metrics.RecordStageDuration(apperrors.StageCapture, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("Capture failed", "error", apperrors.PipelineError{Feed: l.feedID, Stage: apperrors.StageCapture, Err: err})
		l.transition(ctx, models.StatusError)
		metrics.RecordIteration("capture_failed")
		sleep(ctx, l.opts.CaptureBackoff)
		return
	}
	if ctx.Err() != nil {
		return
	}
	l.transition(ctx, models.StatusActive)

	text, confidence, ok := l.transcribe(ctx, seg)
	if !ok {
		return
	}

	result := &models.TranscriptionResult{
		FeedID:     l.feedID,
		Content:    text,
		Confidence: confidence,
	}
	callType := classifier.CallType(feed.Category)
	result.CallType = &callType

	if phrase, found := l.extractor.Extract(text); found {
		query := ComposeQuery(phrase, feed.City)
		if l.opts.GeocodeEnabled && l.geocoder != nil {
			if loc := l.geocoder.Geocode(ctx, query); loc != nil {
				result.SetLocation(loc)
			}
		} else {
			l.log.Debug("Geocoding disabled", "query", query)
		}
	}

	// nothing is persisted once a stop has been requested
	if ctx.Err() != nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.PersistTimeout)
	defer cancel()

	saved, err := l.store.CreateResult(pctx, result)
	if err != nil {
		l.log.Error("Persist failed", "error", apperrors.PipelineError{Feed: l.feedID, Stage: apperrors.StagePersist, Err: err})
		metrics.RecordIteration("persist_failed")
		return
	}

	l.publisher.Publish(pctx, *saved)
	metrics.RecordIteration("published")
	l.log.Debug("Result published", "result_id", saved.ID, "located", saved.HasLocation())
}

// transcribe returns the accepted text or ok=false when the iteration
// should be discarded
func (l *loop) transcribe(ctx context.Context, seg *models.Segment) (string, *int, bool) {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return "", nil, false
		}
	}
	start := time.Now()
	tr, err := l.transcriber.Transcribe(ctx, seg)
	if l.sem != nil {
		l.sem.Release(1)
	}
	metrics.RecordStageDuration(apperrors.StageTranscribe, time.Since(start))

	if err != nil {
		if ctx.Err() == nil {
			l.log.Warn("Transcription failed", "error", apperrors.PipelineError{Feed: l.feedID, Stage: apperrors.StageTranscribe, Err: err})
			metrics.RecordIteration("transcribe_failed")
		}
		return "", nil, false
	}

	text := strings.TrimSpace(tr.Text)
	if utf8.RuneCountInString(text) < l.opts.MinTranscriptChars {
		l.log.Debug("Transcript too short, discarded", "chars", utf8.RuneCountInString(text))
		metrics.RecordIteration("short_transcript")
		return "", nil, false
	}
	return text, tr.Confidence, true
}

// transition writes status when it differs from the last value this loop wrote
func (l *loop) transition(ctx context.Context, status models.FeedStatus) {
	if l.status == status {
		return
	}
	if l.setStatus(ctx, l.log, l.feedID, status) {
		l.status = status
	}
}

func (r *Runner) setStatus(ctx context.Context, log *slog.Logger, feedID int64, status models.FeedStatus) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := r.store.SetFeedStatus(ctx, feedID, status); err != nil {
		log.Warn("Status update failed", "status", status, "error", err)
		return false
	}
	return true
}

// ComposeQuery appends city to phrase unless the phrase already names it
func ComposeQuery(phrase, city string) string {
	city = strings.TrimSpace(city)
	if city == "" || utils.ContainsFold(phrase, city) {
		return phrase
	}
	return phrase + ", " + city
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}
