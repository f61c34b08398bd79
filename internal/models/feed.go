package models

import "time"

// FeedStatus is the persisted monitoring state of a feed
type FeedStatus string

const (
	StatusInactive FeedStatus = "inactive"
	StatusActive   FeedStatus = "active"
	StatusError    FeedStatus = "error"
)

// Valid reports whether s is one of the known statuses
func (s FeedStatus) Valid() bool {
	switch s {
	case StatusInactive, StatusActive, StatusError:
		return true
	}
	return false
}

// Feed represents a monitored audio source
type Feed struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	URL          string     `json:"url" db:"url"`
	Description  string     `json:"description,omitempty" db:"description"`
	Category     string     `json:"category" db:"category"`
	Status       FeedStatus `json:"status" db:"status"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	Latitude     *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" db:"longitude"`
	City         string     `json:"city,omitempty" db:"city"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// HasLocation reports whether the feed carries a nominal coordinate
func (f Feed) HasLocation() bool {
	return f.Latitude != nil && f.Longitude != nil
}
