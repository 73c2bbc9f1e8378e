package app

import "net/http"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string // config directory, e.g. $HOME/.sealchat
	UserID     string // authenticated user
	DeviceID   string // stable per-install identifier
	SystemUser string // sender of the one-time welcome message

	RemoteURL string // remote store base URL; empty selects the in-memory store
	WSURL     string // typing gateway websocket URL; empty selects the loopback
	QueuePath string // offline queue database; defaults to <home>/queue.db

	HTTP *http.Client // optional; defaults to http.DefaultClient
}
