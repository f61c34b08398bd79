package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

const (
	pingInterval = 30 * time.Second
	pongTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	readLimit    = 4096
)

// WebSocketSubscriber writes events as JSON text frames
type WebSocketSubscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
	once sync.Once
}

func NewWebSocketSubscriber(conn *websocket.Conn) *WebSocketSubscriber {
	return &WebSocketSubscriber{id: uuid.NewString(), conn: conn}
}

func (w *WebSocketSubscriber) ID() string { return w.id }

func (w *WebSocketSubscriber) Send(ctx context.Context, event models.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteJSON(event)
}

func (w *WebSocketSubscriber) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout))
}

func (w *WebSocketSubscriber) Close() error {
	var err error
	w.once.Do(func() {
		w.mu.Lock()
		w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.mu.Unlock()
		err = w.conn.Close()
	})
	return err
}

// ServeConn registers conn as a subscriber and blocks until the peer goes
// away or ctx is done. Messages from the peer are read and discarded.
func (b *Broadcaster) ServeConn(ctx context.Context, conn *websocket.Conn) {
	sub := NewWebSocketSubscriber(conn)
	b.Subscribe(sub)
	defer func() {
		b.Unsubscribe(sub.ID())
		sub.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sub.keepAlive(ctx)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Subscriber connection closed", "subscriber_id", sub.ID(), "error", err)
			}
			return
		}
	}
}

func (w *WebSocketSubscriber) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ping(); err != nil {
				logger.Debug("Failed to send ping", "subscriber_id", w.id, "error", err)
				return
			}
		}
	}
}
