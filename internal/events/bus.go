// Package events publishes assistant activity to a websocket bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const (
	Source = "opencode"

	writeTimeout = 5 * time.Second
)

type Event struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Kind    string    `json:"kind"`
	Content string    `json:"content,omitempty"`
	Time    time.Time `json:"time"`
}

// Bus is a write-only websocket client. A broken connection is redialled
// on the next publish; the failed event is not resent.
type Bus struct {
	url string

	mu   sync.Mutex
	conn *ws.Conn
	now  func() time.Time
}

func Dial(ctx context.Context, url string) (*Bus, error) {
	b := &Bus{url: url, now: time.Now}

	if err := b.dial(ctx); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", url)
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial bus %s: %w", b.url, err)
	}
	b.conn = conn
	return nil
}

func (b *Bus) Publish(kind, content string) {
	ev := Event{
		ID:      uuid.NewString(),
		From:    Source,
		Kind:    kind,
		Content: content,
		Time:    b.now().UTC(),
	}

	if err := b.write(ev); err != nil {
		log.Warn("Failed to publish event", "kind", kind, "err", err)
	}
}

func (b *Bus) write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := b.dial(ctx); err != nil {
			return err
		}
	}

	log.Debug("Write ws", "msg", string(data))

	b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := b.conn.WriteMessage(ws.TextMessage, data); err != nil {
		b.conn.Close()
		b.conn = nil
		return err
	}

	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}

	msg := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
	b.conn.WriteControl(ws.CloseMessage, msg, time.Now().Add(time.Second))

	err := b.conn.Close()
	b.conn = nil
	return err
}
