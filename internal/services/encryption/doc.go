// Package encryption derives per-conversation shared secrets and seals and
// opens message payloads. It is a thin policy layer over the crypto
// primitives: it owns error classification, not cipher parameters.
package encryption
