package classifier

import (
	"strings"

	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// Call classification labels
const (
	CallDispatch = "Dispatch"
	CallFire     = "Fire"
	CallMedical  = "Medical"
	CallWeather  = "Weather"
)

var categoryCalls = map[string]string{
	"police":  CallDispatch,
	"fire":    CallFire,
	"medical": CallMedical,
	"ems":     CallMedical,
	"weather": CallWeather,
}

// Classifier maps a feed category to a call classification
type Classifier struct{}

// New creates a new classifier instance
func New() *Classifier {
	return &Classifier{}
}

// Classify returns the call classification for feed. Unknown categories
// classify as Dispatch.
func (c *Classifier) Classify(feed models.Feed) string {
	return CallType(feed.Category)
}

// CallType maps a category name to its label, ignoring case and padding
func CallType(category string) string {
	if call, ok := categoryCalls[strings.ToLower(strings.TrimSpace(category))]; ok {
		return call
	}
	return CallDispatch
}
