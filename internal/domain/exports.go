package domain

import (
	interfaces "sealchat/internal/domain/interfaces"
	types "sealchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID           = types.UserID
	ConversationID   = types.ConversationID
	MessageID        = types.MessageID
	QueueID          = types.QueueID
	DeviceID         = types.DeviceID
	X25519Public     = types.X25519Public
	X25519Private    = types.X25519Private
	KeyPair          = types.KeyPair
	UserKey          = types.UserKey
	Conversation     = types.Conversation
	Message          = types.Message
	DecryptedMessage = types.DecryptedMessage
	QueueStatus      = types.QueueStatus
	QueuedMessage    = types.QueuedMessage
	TypingState      = types.TypingState
	WelcomeResult    = types.WelcomeResult
)

// Queue lifecycle states re-exported for compact imports.
const (
	QueuePending    = types.QueuePending
	QueueProcessing = types.QueueProcessing
	QueueFailed     = types.QueueFailed
	QueueSent       = types.QueueSent
)

// EditWindow bounds how long after creation a message may be edited or deleted.
const EditWindow = types.EditWindow

// CanonicalPair orders two user ids into participant slots.
func CanonicalPair(a, b UserID) (UserID, UserID) { return types.CanonicalPair(a, b) }

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyService          = interfaces.KeyService
	Encryptor           = interfaces.Encryptor
	ConversationService = interfaces.ConversationService
	WelcomeService      = interfaces.WelcomeService
	QueueStore          = interfaces.QueueStore
	RemoteStore         = interfaces.RemoteStore
	TypingTransport     = interfaces.TypingTransport
)
