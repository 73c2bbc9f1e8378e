// Package welcome sends the one-time encrypted bootstrap message from the
// platform's fixed system identity to a newly registered user.
//
// The bootstrap runs during sign-in and must never block it: every failure
// is logged and swallowed, and the result is reported, not thrown.
package welcome
