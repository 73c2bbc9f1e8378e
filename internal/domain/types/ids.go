package types

// UserID identifies a platform user.
type UserID string

// String returns the string form of the user id.
func (u UserID) String() string { return string(u) }

// ConversationID identifies a conversation row in the remote store.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }

// MessageID identifies a message row in the remote store.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// QueueID identifies a locally queued outbound message. It doubles as the
// idempotency token sent to the remote store on insert.
type QueueID string

// String returns the string form of the queue identifier.
func (id QueueID) String() string { return string(id) }

// DeviceID distinguishes encryption keys registered from different devices.
type DeviceID string

// String returns the string form of the device identifier.
func (id DeviceID) String() string { return string(id) }
