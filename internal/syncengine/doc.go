// Package syncengine drives the outbound message path: encrypt, attempt
// immediate delivery, queue durably on failure, and drain the queue with one
// sequential worker per conversation so the remote store never sees this
// client's sends out of order. Independent conversations drain concurrently.
//
// Sequence numbers are assigned by the remote store at insert time; the
// engine reads order back, never invents it. Retries follow a fixed
// exponential schedule and stop after five attempts, leaving the entry
// visible for a manual retry.
package syncengine
