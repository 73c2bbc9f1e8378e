package realtime

import (
	"context"
	"sync"

	"sealchat/internal/domain"
)

// Loopback is an in-process transport: published indicators come straight
// back out of Updates. Used by tests and by single-process runs with no push
// gateway configured.
type Loopback struct {
	updates chan domain.TypingState

	mu     sync.Mutex
	closed bool
}

// NewLoopback returns an open loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{updates: make(chan domain.TypingState, updateBuffer)}
}

func (l *Loopback) PublishTyping(_ context.Context, state domain.TypingState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	select {
	case l.updates <- state:
	default:
	}
	return nil
}

func (l *Loopback) Updates() <-chan domain.TypingState { return l.updates }

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.updates)
	}
	return nil
}

// Compile-time assertion that Loopback implements domain.TypingTransport.
var _ domain.TypingTransport = (*Loopback)(nil)
