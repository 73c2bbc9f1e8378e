package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"

	"sealchat/internal/domain"
)

const (
	writeTimeout = 5 * time.Second

	// updateBuffer bounds the inbound channel; a slow consumer loses
	// indicators instead of stalling the read loop.
	updateBuffer = 16
)

// WSTransport streams typing indicators over the platform's push channel.
type WSTransport struct {
	conn    *websocket.Conn
	updates chan domain.TypingState

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialWS connects to the push gateway at url.
func DialWS(ctx context.Context, url string) (*WSTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t := &WSTransport{
		conn:    conn,
		updates: make(chan domain.TypingState, updateBuffer),
	}
	go t.readLoop()
	return t, nil
}

func (t *WSTransport) readLoop() {
	defer close(t.updates)
	for {
		var state domain.TypingState
		if err := t.conn.ReadJSON(&state); err != nil {
			jww.DEBUG.Printf("[realtime] read loop ended: %v", err)
			return
		}
		select {
		case t.updates <- state:
		default:
			// Consumer is behind; typing indicators are droppable.
		}
	}
}

// PublishTyping pushes one indicator frame. Errors are reported but callers
// treat them as droppable.
func (t *WSTransport) PublishTyping(ctx context.Context, state domain.TypingState) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = t.conn.SetWriteDeadline(deadline)
	return t.conn.WriteJSON(state)
}

// Updates streams indicators from peers until Close.
func (t *WSTransport) Updates() <-chan domain.TypingState { return t.updates }

// Close tears down the connection; the read loop drains out.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() { err = t.conn.Close() })
	return err
}

// Compile-time assertion that WSTransport implements domain.TypingTransport.
var _ domain.TypingTransport = (*WSTransport)(nil)
