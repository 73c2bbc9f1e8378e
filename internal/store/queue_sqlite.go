package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	pkgerrors "github.com/pkg/errors"

	"sealchat/internal/domain"
)

// QueueStore persists queued outbound messages in an embedded SQLite file.
type QueueStore struct {
	db *sql.DB
}

// OpenQueue opens (and if needed creates) the queue database at path.
// Use ":memory:" for an ephemeral queue in tests.
func OpenQueue(path string) (*QueueStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open queue db")
	}
	if err := db.Ping(); err != nil {
		return nil, pkgerrors.Wrap(err, "ping queue db")
	}
	// A single writer keeps the serialized-per-conversation model simple and
	// sidesteps SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	s := &QueueStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	if err := s.requeueInterrupted(); err != nil {
		return nil, err
	}
	return s, nil
}

// requeueInterrupted returns rows stuck in processing to pending. Such rows
// belong to a previous run that died mid-attempt; replaying them is safe
// because the remote store deduplicates on the client reference.
func (s *QueueStore) requeueInterrupted() error {
	_, err := s.db.Exec(`UPDATE queued_messages SET status = ? WHERE status = ?`,
		string(domain.QueuePending), string(domain.QueueProcessing))
	return pkgerrors.Wrap(err, "requeue interrupted messages")
}

func (s *QueueStore) createTables() error {
	const query = `
	CREATE TABLE IF NOT EXISTS queued_messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id       TEXT NOT NULL,
		ciphertext      BLOB NOT NULL,
		iv              BLOB NOT NULL,
		status          TEXT NOT NULL,
		retry_count     INTEGER NOT NULL DEFAULT 0,
		not_before      INTEGER NOT NULL,
		enqueued_at     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queue_conv_status
		ON queued_messages (conversation_id, status, enqueued_at);
	CREATE TABLE IF NOT EXISTS peer_keys (
		conversation_id TEXT PRIMARY KEY,
		peer_id         TEXT NOT NULL,
		public_jwk      TEXT NOT NULL,
		cached_at       INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return pkgerrors.Wrap(err, "create queue tables")
}

func (s *QueueStore) Enqueue(ctx context.Context, m domain.QueuedMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queued_messages
			(id, conversation_id, sender_id, ciphertext, iv, status, retry_count, not_before, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.ConversationID.String(), m.SenderID.String(),
		m.Ciphertext, m.IV, string(m.Status), m.RetryCount,
		m.NotBefore.UnixMilli(), m.EnqueuedAt.UnixMilli(),
	)
	return pkgerrors.Wrap(err, "enqueue")
}

func (s *QueueStore) Get(ctx context.Context, id domain.QueueID) (domain.QueuedMessage, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, ciphertext, iv, status, retry_count, not_before, enqueued_at
		FROM queued_messages WHERE id = ?`, id.String())
	m, err := scanQueued(row)
	if err == sql.ErrNoRows {
		return domain.QueuedMessage{}, false, nil
	}
	if err != nil {
		return domain.QueuedMessage{}, false, pkgerrors.Wrap(err, "get queued message")
	}
	return m, true, nil
}

func (s *QueueStore) NextPending(
	ctx context.Context,
	conversation domain.ConversationID,
	now time.Time,
) (domain.QueuedMessage, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, ciphertext, iv, status, retry_count, not_before, enqueued_at
		FROM queued_messages
		WHERE conversation_id = ? AND status = ? AND not_before <= ?
		ORDER BY enqueued_at ASC, id ASC
		LIMIT 1`,
		conversation.String(), string(domain.QueuePending), now.UnixMilli())
	m, err := scanQueued(row)
	if err == sql.ErrNoRows {
		return domain.QueuedMessage{}, false, nil
	}
	if err != nil {
		return domain.QueuedMessage{}, false, pkgerrors.Wrap(err, "next pending")
	}
	return m, true, nil
}

func (s *QueueStore) PendingConversations(ctx context.Context) ([]domain.ConversationID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT conversation_id FROM queued_messages WHERE status = ?`,
		string(domain.QueuePending))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "pending conversations")
	}
	defer rows.Close()

	var out []domain.ConversationID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.Wrap(err, "scan conversation id")
		}
		out = append(out, domain.ConversationID(id))
	}
	return out, rows.Err()
}

func (s *QueueStore) MarkProcessing(ctx context.Context, id domain.QueueID) error {
	return s.setStatus(ctx, id, domain.QueueProcessing)
}

func (s *QueueStore) RecordFailure(
	ctx context.Context,
	id domain.QueueID,
	retryCount int,
	notBefore time.Time,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE queued_messages SET status = ?, retry_count = ?, not_before = ? WHERE id = ?`,
		string(domain.QueuePending), retryCount, notBefore.UnixMilli(), id.String())
	return pkgerrors.Wrap(err, "record failure")
}

func (s *QueueStore) MarkFailed(ctx context.Context, id domain.QueueID) error {
	return s.setStatus(ctx, id, domain.QueueFailed)
}

func (s *QueueStore) ResetForRetry(ctx context.Context, id domain.QueueID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE queued_messages SET status = ?, retry_count = 0, not_before = 0
		WHERE id = ? AND status = ?`,
		string(domain.QueuePending), id.String(), string(domain.QueueFailed))
	return pkgerrors.Wrap(err, "reset for retry")
}

func (s *QueueStore) Remove(ctx context.Context, id domain.QueueID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queued_messages WHERE id = ?`, id.String())
	return pkgerrors.Wrap(err, "remove queued message")
}

func (s *QueueStore) List(
	ctx context.Context,
	conversation domain.ConversationID,
) ([]domain.QueuedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, ciphertext, iv, status, retry_count, not_before, enqueued_at
		FROM queued_messages
		WHERE conversation_id = ?
		ORDER BY enqueued_at ASC, id ASC`, conversation.String())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list queued messages")
	}
	defer rows.Close()

	var out []domain.QueuedMessage
	for rows.Next() {
		m, err := scanQueued(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan queued message")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *QueueStore) CachePeerKey(
	ctx context.Context,
	conversation domain.ConversationID,
	key domain.UserKey,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO peer_keys (conversation_id, peer_id, public_jwk, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			peer_id = excluded.peer_id,
			public_jwk = excluded.public_jwk,
			cached_at = excluded.cached_at`,
		conversation.String(), key.UserID.String(), key.PublicJWK, time.Now().UnixMilli())
	return pkgerrors.Wrap(err, "cache peer key")
}

func (s *QueueStore) CachedPeerKey(
	ctx context.Context,
	conversation domain.ConversationID,
) (domain.UserKey, bool, error) {
	var (
		peer, jwk string
		cachedAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT peer_id, public_jwk, cached_at FROM peer_keys WHERE conversation_id = ?`,
		conversation.String()).Scan(&peer, &jwk, &cachedAt)
	if err == sql.ErrNoRows {
		return domain.UserKey{}, false, nil
	}
	if err != nil {
		return domain.UserKey{}, false, pkgerrors.Wrap(err, "read cached peer key")
	}
	return domain.UserKey{
		UserID:    domain.UserID(peer),
		PublicJWK: jwk,
		CreatedAt: time.UnixMilli(cachedAt),
	}, true, nil
}

func (s *QueueStore) Close() error { return s.db.Close() }

func (s *QueueStore) setStatus(ctx context.Context, id domain.QueueID, status domain.QueueStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE queued_messages SET status = ? WHERE id = ?`,
		string(status), id.String())
	return pkgerrors.Wrapf(err, "set status %s", status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueued(r rowScanner) (domain.QueuedMessage, error) {
	var (
		m                   domain.QueuedMessage
		id, conv, sender    string
		status              string
		notBefore, enqueued int64
	)
	err := r.Scan(&id, &conv, &sender, &m.Ciphertext, &m.IV, &status, &m.RetryCount, &notBefore, &enqueued)
	if err != nil {
		return domain.QueuedMessage{}, err
	}
	m.ID = domain.QueueID(id)
	m.ConversationID = domain.ConversationID(conv)
	m.SenderID = domain.UserID(sender)
	m.Status = domain.QueueStatus(status)
	m.NotBefore = time.UnixMilli(notBefore)
	m.EnqueuedAt = time.UnixMilli(enqueued)
	return m, nil
}

// Compile-time assertion that QueueStore implements domain.QueueStore.
var _ domain.QueueStore = (*QueueStore)(nil)
