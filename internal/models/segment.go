package models

import "time"

// Segment is one captured audio excerpt. Path is empty when the source
// produced no file, as in synthetic mode.
type Segment struct {
	Path     string
	Duration time.Duration
}

// Transcript is the text recognized from a segment
type Transcript struct {
	Text       string
	Confidence *int
}
