// Package commands defines the sealchat CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init-keys  Derive and register your encryption keys
//   - status     Show key registration and migration state
//   - migrate    Replace a legacy key with a recoverable one
//   - send       Encrypt and send a direct message
//   - history    Fetch and decrypt the conversation history
//   - retry      Retry failed sends and drain the offline queue
//
// # Implementation
//
// The root command builds the dependency graph (remote store client, offline
// queue, services, sync engine) before any subcommand runs, so handlers share
// one app context. Flags can also be supplied via SEALCHAT_* environment
// variables.
package commands
