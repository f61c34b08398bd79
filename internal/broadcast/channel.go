package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// ErrClosed is returned when sending to a closed subscriber
var ErrClosed = errors.New("subscriber closed")

// ChannelSubscriber delivers events to a buffered Go channel
type ChannelSubscriber struct {
	id     string
	events chan models.Event
	done   chan struct{}
	once   sync.Once
}

func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:     uuid.NewString(),
		events: make(chan models.Event, buffer),
		done:   make(chan struct{}),
	}
}

func (c *ChannelSubscriber) ID() string { return c.id }

// Events is never closed; select on Done to notice closure
func (c *ChannelSubscriber) Events() <-chan models.Event { return c.events }

func (c *ChannelSubscriber) Done() <-chan struct{} { return c.done }

func (c *ChannelSubscriber) Send(ctx context.Context, event models.Event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.events <- event:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChannelSubscriber) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
