// Package conversation resolves the canonical conversation row for a user
// pair, absorbing creation races between devices and tabs.
package conversation
