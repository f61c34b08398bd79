package models

import "time"

// Location is a resolved coordinate with its display address
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// TranscriptionResult is one accepted pipeline output for a feed
type TranscriptionResult struct {
	ID         int64     `json:"id" db:"id"`
	FeedID     int64     `json:"feed_id" db:"feed_id"`
	Content    string    `json:"content" db:"content"`
	Confidence *int      `json:"confidence,omitempty" db:"confidence"`
	Latitude   *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64  `json:"longitude,omitempty" db:"longitude"`
	Address    *string   `json:"address,omitempty" db:"address"`
	CallType   *string   `json:"call_type,omitempty" db:"call_type"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// HasLocation reports whether the result was geocoded
func (r TranscriptionResult) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SetLocation copies loc into the optional location fields
func (r *TranscriptionResult) SetLocation(loc *Location) {
	if loc == nil {
		return
	}
	lat, lon, addr := loc.Latitude, loc.Longitude, loc.Address
	r.Latitude = &lat
	r.Longitude = &lon
	r.Address = &addr
}

// ResultQuery represents query parameters for listing results
type ResultQuery struct {
	FeedID       int64 `json:"feed_id"`
	Limit        int   `json:"limit"`
	WithLocation bool  `json:"with_location"`
}

// Matches checks if a result matches the query criteria
func (q ResultQuery) Matches(r TranscriptionResult) bool {
	if q.FeedID != 0 && r.FeedID != q.FeedID {
		return false
	}
	if q.WithLocation && !r.HasLocation() {
		return false
	}
	return true
}

// EventTypeTranscription is the only event type sent to subscribers
const EventTypeTranscription = "transcription"

// Event is the message delivered to live subscribers
type Event struct {
	Type    string       `json:"type"`
	Payload EventPayload `json:"payload"`
}

// EventPayload carries a single persisted result
type EventPayload struct {
	FeedID    int64    `json:"feedId"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   *string  `json:"address,omitempty"`
	CallType  *string  `json:"callType,omitempty"`
}

// NewTranscriptionEvent builds the subscriber message for a persisted result
func NewTranscriptionEvent(r TranscriptionResult) Event {
	return Event{
		Type: EventTypeTranscription,
		Payload: EventPayload{
			FeedID:    r.FeedID,
			Content:   r.Content,
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Address:   r.Address,
			CallType:  r.CallType,
		},
	}
}
