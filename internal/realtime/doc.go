// Package realtime carries typing indicators between connected clients.
//
// Everything here is best effort: updates may be dropped, carry no ordering
// guarantee, and are never queued or retried. Durable state stays out of
// this package entirely.
package realtime
