package syncengine

import (
	"context"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"sealchat/internal/domain"
)

const (
	// typingIdle is the local debounce: the indicator de-asserts after this
	// much keyboard inactivity.
	typingIdle = 3 * time.Second

	// typingKeepalive bounds how often a still-typing user re-publishes. The
	// remote row expires on its own (~5s) so a crashed client's indicator
	// cannot linger; republishing under that expiry keeps a continuously
	// typing user visible to the peer.
	typingKeepalive = 2 * time.Second
)

// typingSession tracks one asserted indicator.
type typingSession struct {
	timer       *time.Timer
	publishedAt time.Time
}

// Typing asserts the typing indicator for the conversation. The first call
// publishes typing=true; subsequent calls within the idle window push the
// auto-clear further out and refresh the expiring remote row when the last
// publish is older than the keepalive interval.
func (e *Engine) Typing(conversation domain.ConversationID) {
	if e.typing == nil {
		return
	}
	e.mu.Lock()
	ts, active := e.typingTimers[conversation]
	if active {
		ts.timer.Reset(typingIdle)
		if e.now().Sub(ts.publishedAt) < typingKeepalive {
			e.mu.Unlock()
			return
		}
		ts.publishedAt = e.now()
		e.mu.Unlock()
		e.publishTyping(conversation, true)
		return
	}
	e.typingTimers[conversation] = &typingSession{
		timer: time.AfterFunc(typingIdle, func() {
			e.StopTyping(conversation)
		}),
		publishedAt: e.now(),
	}
	e.mu.Unlock()

	e.publishTyping(conversation, true)
}

// StopTyping de-asserts the indicator, on send or after idle timeout.
func (e *Engine) StopTyping(conversation domain.ConversationID) {
	if e.typing == nil {
		return
	}
	e.mu.Lock()
	ts, active := e.typingTimers[conversation]
	if active {
		ts.timer.Stop()
		delete(e.typingTimers, conversation)
	}
	e.mu.Unlock()
	if !active {
		return
	}

	e.publishTyping(conversation, false)
}

// publishTyping pushes the indicator to the live channel and the expiring
// remote row. Both are best effort; failures are logged and dropped.
func (e *Engine) publishTyping(conversation domain.ConversationID, typing bool) {
	state := domain.TypingState{
		ConversationID: conversation,
		UserID:         e.session.UserID(),
		Typing:         typing,
		UpdatedAt:      e.now(),
	}

	ctx, cancel := context.WithTimeout(e.ctx, 2*time.Second)
	defer cancel()
	if err := e.typing.PublishTyping(ctx, state); err != nil {
		jww.DEBUG.Printf("[typing] publish %s=%t: %v", conversation, typing, err)
	}
	if err := e.remote.UpsertTyping(ctx, state); err != nil {
		jww.DEBUG.Printf("[typing] upsert %s=%t: %v", conversation, typing, err)
	}
}
