// Package keys manages the lifecycle of a user's encryption identity:
// first-time initialization, deterministic re-derivation on later sign-ins,
// and migration of legacy random-key records to password derivation.
package keys
