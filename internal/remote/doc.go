// Package remote talks to the authoritative relational store.
//
// The store is an external collaborator: it owns sequence-number assignment,
// the conversation uniqueness constraint, and edit-window enforcement.
// HTTPClient is the production implementation; Memory reproduces the store's
// full semantics in process for tests and local runs.
package remote
