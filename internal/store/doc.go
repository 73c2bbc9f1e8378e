// Package store provides the durable local queue for outbound messages.
//
// The queue survives process restarts so a message composed offline is never
// lost; entries leave the queue only on confirmed remote delivery, manual
// cancellation, or explicit failure after retry exhaustion. The sync engine
// is the sole writer.
package store
