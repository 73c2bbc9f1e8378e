package interfaces

import (
	"context"

	domaintypes "sealchat/internal/domain/types"
)

// TypingTransport pushes typing indicators to the peer in real time.
// Delivery is best effort; updates carry no ordering guarantee and may be
// dropped.
type TypingTransport interface {
	PublishTyping(ctx context.Context, state domaintypes.TypingState) error

	// Updates streams indicators from peers until Close.
	Updates() <-chan domaintypes.TypingState

	Close() error
}
