package transcriber

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

var dispatchLines = []string{
	"Unit 10-4, proceeding to location.",
	"Dispatch, we have a code 3 on Main St.",
	"Suspect described as male, late 20s, red hoodie.",
	"Fire department arriving on scene.",
	"EMS requested at 405 highway.",
	"Status check on unit 4.",
	"Clear the channel for emergency traffic.",
	"Suspect in custody.",
	"Traffic stop at 5th and Elm.",
	"Copy that, 10-4.",
	"Structure fire reported, multiple units responding.",
	"Medical emergency, cardiac arrest.",
	"Vehicle collision, requesting traffic control.",
	"Burglary in progress, silent approach.",
}

var dispatchAddresses = []string{
	"123 Main Street",
	"456 Oak Avenue",
	"789 Park Boulevard",
	"101 First Street",
	"202 Second Avenue",
	"303 Third Street",
	"404 Fourth Avenue",
	"505 Fifth Street",
	"1200 Industrial Way",
	"850 Commerce Drive",
}

// Synthetic returns canned dispatch traffic. Half of the lines name an address.
type Synthetic struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{rnd: rand.New(rand.NewSource(seed))}
}

func (s *Synthetic) Validate() error { return nil }

func (s *Synthetic) Transcribe(ctx context.Context, seg *models.Segment) (models.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return models.Transcript{}, err
	}

	s.mu.Lock()
	text := dispatchLines[s.rnd.Intn(len(dispatchLines))]
	if s.rnd.Intn(2) == 0 {
		text += " Respond to " + dispatchAddresses[s.rnd.Intn(len(dispatchAddresses))] + "."
	}
	confidence := 90 + s.rnd.Intn(10)
	s.mu.Unlock()

	return models.Transcript{Text: text, Confidence: &confidence}, nil
}

// Transcriber is implemented by every recognition backend
type Transcriber interface {
	Validate() error
	Transcribe(ctx context.Context, seg *models.Segment) (models.Transcript, error)
}

// New selects the backend named by cfg.Recognition.Mode
func New(cfg *config.Config) Transcriber {
	if cfg.Recognition.Mode == config.TranscribeModeSynthetic {
		return NewSynthetic(time.Now().UnixNano())
	}
	return NewWhisper(cfg.Recognition)
}
