// Package transcriber turns captured segments into text.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rajasatyajit/FeedMonitor/config"
	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// Whisper runs the whisper.cpp CLI against WAV segments
type Whisper struct {
	bin      string
	model    string
	language string
	timeout  time.Duration
}

func NewWhisper(cfg config.RecognitionConfig) *Whisper {
	return &Whisper{
		bin:      cfg.WhisperBin,
		model:    cfg.WhisperModel,
		language: cfg.Language,
		timeout:  cfg.Timeout,
	}
}

// Validate checks that the binary and model both exist
func (w *Whisper) Validate() error {
	var errs apperrors.MultiError
	errs.Add(checkFile("whisper", w.bin))
	errs.Add(checkFile("whisper model", w.model))
	return errs.ErrorOrNil()
}

func checkFile(component, path string) error {
	if path == "" {
		return apperrors.ConfigurationError{Component: component, Err: fmt.Errorf("%w: path not configured", apperrors.ErrToolMissing)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return apperrors.ConfigurationError{Component: component, Path: path, Err: fmt.Errorf("%w: %v", apperrors.ErrToolMissing, err)}
	}
	if info.IsDir() {
		return apperrors.ConfigurationError{Component: component, Path: path, Err: fmt.Errorf("%w: is a directory", apperrors.ErrToolMissing)}
	}
	return nil
}

func outputBase(segmentPath string) string {
	return strings.TrimSuffix(segmentPath, filepath.Ext(segmentPath))
}

func (w *Whisper) args(segmentPath string) []string {
	return []string{
		"-m", w.model,
		"-f", segmentPath,
		"-l", w.language,
		"-oj",
		"-of", outputBase(segmentPath),
		"-nt",
		"-np",
	}
}

// Transcribe returns the recognized text of seg. An empty Text means the
// tool ran but heard nothing usable.
func (w *Whisper) Transcribe(ctx context.Context, seg *models.Segment) (models.Transcript, error) {
	if seg == nil || seg.Path == "" {
		return models.Transcript{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.bin, w.args(seg.Path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Transcript{}, fmt.Errorf("%w: timed out after %s", apperrors.ErrTranscriptionFailed, w.timeout)
		}
		if ctx.Err() != nil {
			return models.Transcript{}, ctx.Err()
		}
		return models.Transcript{}, fmt.Errorf("%w: %v: %s", apperrors.ErrTranscriptionFailed, err, strings.TrimSpace(stderr.String()))
	}

	jsonPath := outputBase(seg.Path) + ".json"
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return models.Transcript{}, fmt.Errorf("%w: read output: %v", apperrors.ErrTranscriptionFailed, err)
	}
	os.Remove(jsonPath)

	text, err := ParseOutput(raw)
	if err != nil {
		return models.Transcript{}, err
	}
	return models.Transcript{Text: text}, nil
}

type textPiece struct {
	Text string `json:"text"`
}

type whisperOutput struct {
	Transcription json.RawMessage `json:"transcription"`
	Segments      []textPiece     `json:"segments"`
}

// ParseOutput extracts text from whisper JSON output. "transcription" may
// be a string or a list of timed pieces; "segments" is used when it is
// absent or empty.
func ParseOutput(raw []byte) (string, error) {
	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode output: %v", apperrors.ErrTranscriptionFailed, err)
	}

	if len(out.Transcription) > 0 {
		var s string
		if err := json.Unmarshal(out.Transcription, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s, nil
			}
		}
		var pieces []textPiece
		if err := json.Unmarshal(out.Transcription, &pieces); err == nil {
			if s := joinPieces(pieces); s != "" {
				return s, nil
			}
		}
	}

	return joinPieces(out.Segments), nil
}

func joinPieces(pieces []textPiece) string {
	parts := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
