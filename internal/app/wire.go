package app

import (
	"context"
	"net/http"
	"path/filepath"

	"sealchat/internal/domain"
	"sealchat/internal/realtime"
	"sealchat/internal/remote"
	conversationsvc "sealchat/internal/services/conversation"
	encryptionsvc "sealchat/internal/services/encryption"
	keysvc "sealchat/internal/services/keys"
	welcomesvc "sealchat/internal/services/welcome"
	"sealchat/internal/session"
	"sealchat/internal/store"
	"sealchat/internal/syncengine"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Session       *session.Session
	Keys          domain.KeyService
	Encryptor     domain.Encryptor
	Conversations domain.ConversationService
	Welcome       domain.WelcomeService
	Remote        domain.RemoteStore
	Queue         domain.QueueStore
	Typing        domain.TypingTransport
	Engine        *syncengine.Engine
	HTTP          *http.Client
}

// NewWire constructs the dependency graph from cfg. Without a remote URL the
// in-memory store is used, which only makes sense for local experimentation.
func NewWire(ctx context.Context, cfg Config) (*Wire, error) {
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var rs domain.RemoteStore
	if cfg.RemoteURL != "" {
		rs = remote.NewHTTP(cfg.RemoteURL, httpClient)
	} else {
		rs = remote.NewMemory()
	}

	var typing domain.TypingTransport
	if cfg.WSURL != "" {
		t, err := realtime.DialWS(ctx, cfg.WSURL)
		if err != nil {
			return nil, err
		}
		typing = t
	} else {
		typing = realtime.NewLoopback()
	}

	queuePath := cfg.QueuePath
	if queuePath == "" {
		queuePath = filepath.Join(cfg.Home, "queue.db")
	}
	queue, err := store.OpenQueue(queuePath)
	if err != nil {
		_ = typing.Close()
		return nil, err
	}

	sess := session.New(domain.UserID(cfg.UserID))
	enc := encryptionsvc.New()
	convs := conversationsvc.New(rs)

	return &Wire{
		Session:       sess,
		Keys:          keysvc.New(rs, sess, domain.DeviceID(cfg.DeviceID)),
		Encryptor:     enc,
		Conversations: convs,
		Welcome:       welcomesvc.New(rs, convs, enc, domain.UserID(cfg.SystemUser)),
		Remote:        rs,
		Queue:         queue,
		Typing:        typing,
		Engine:        syncengine.New(sess, enc, convs, rs, queue, typing),
		HTTP:          httpClient,
	}, nil
}

// Close tears the graph down in dependency order and discards key material.
func (w *Wire) Close() {
	w.Engine.Close()
	_ = w.Typing.Close()
	_ = w.Queue.Close()
	w.Session.Lock()
}
