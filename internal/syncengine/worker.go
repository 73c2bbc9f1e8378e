package syncengine

import (
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"sealchat/internal/domain"
)

// ensureWorker starts the conversation's queue worker if absent and wakes it
// either way. One worker per conversation keeps sends strictly sequential
// within it; distinct conversations drain independently.
func (e *Engine) ensureWorker(conversation domain.ConversationID) {
	e.mu.Lock()
	wake, ok := e.workers[conversation]
	if !ok {
		wake = make(chan struct{}, 1)
		e.workers[conversation] = wake
		e.wg.Add(1)
		go e.runWorker(conversation, wake)
	}
	e.mu.Unlock()

	select {
	case wake <- struct{}{}:
	default:
	}
}

func (e *Engine) runWorker(conversation domain.ConversationID, wake chan struct{}) {
	defer e.wg.Done()
	for {
		if e.ctx.Err() != nil {
			return
		}
		m, ok, err := e.queue.NextPending(e.ctx, conversation, e.now())
		if err != nil {
			jww.ERROR.Printf("[sync] %s: read queue: %v", conversation, err)
			if !e.wait(wake, e.backoffBase) {
				return
			}
			continue
		}
		if !ok {
			// Nothing due. Entries deferred by backoff become due on their
			// own; re-poll on the base interval or on a wake.
			if !e.wait(wake, e.backoffBase) {
				return
			}
			continue
		}
		e.attempt(m)
	}
}

// attempt performs one delivery try for a due queue entry.
func (e *Engine) attempt(m domain.QueuedMessage) {
	if err := e.queue.MarkProcessing(e.ctx, m.ID); err != nil {
		jww.ERROR.Printf("[sync] %s: mark processing: %v", m.ID, err)
		return
	}

	stored, err := e.remote.InsertMessage(e.ctx, domain.Message{
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Ciphertext:     m.Ciphertext,
		IV:             m.IV,
		ClientRef:      m.ID, // remote dedupe key: a replayed entry inserts once
	})
	if err == nil {
		if rerr := e.queue.Remove(e.ctx, m.ID); rerr != nil {
			jww.ERROR.Printf("[sync] %s: remove after delivery: %v", m.ID, rerr)
		}
		e.publish(Event{
			Type:           EventDelivered,
			ConversationID: m.ConversationID,
			QueueID:        m.ID,
			Message:        &stored,
		})
		return
	}

	failures := m.RetryCount + 1
	if failures >= MaxAttempts {
		if ferr := e.queue.MarkFailed(e.ctx, m.ID); ferr != nil {
			jww.ERROR.Printf("[sync] %s: mark failed: %v", m.ID, ferr)
		}
		jww.WARN.Printf("[sync] %s: giving up after %d attempts: %v", m.ID, failures, err)
		e.publish(Event{
			Type:           EventFailed,
			ConversationID: m.ConversationID,
			QueueID:        m.ID,
			Attempt:        failures,
		})
		return
	}

	delay := e.retryDelay(failures)
	if rerr := e.queue.RecordFailure(e.ctx, m.ID, failures, e.now().Add(delay)); rerr != nil {
		jww.ERROR.Printf("[sync] %s: record failure: %v", m.ID, rerr)
		return
	}
	jww.DEBUG.Printf("[sync] %s: attempt %d failed, retrying in %s: %v", m.ID, failures, delay, err)
	e.publish(Event{
		Type:           EventRetrying,
		ConversationID: m.ConversationID,
		QueueID:        m.ID,
		Attempt:        failures,
	})
}

// retryDelay returns the backoff after the nth failure: base, 2*base,
// 4*base, 8*base, 16*base.
func (e *Engine) retryDelay(failures int) time.Duration {
	return e.backoffBase << (failures - 1)
}

// wait blocks until a wake, the timeout, or engine shutdown. It reports
// false only on shutdown.
func (e *Engine) wait(wake chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.ctx.Done():
		return false
	case <-wake:
		return true
	case <-timer.C:
		return true
	}
}
