package types

// WelcomeResult reports the outcome of the welcome bootstrap. It is always
// returned, never thrown: bootstrap failures must not block sign-in.
type WelcomeResult struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}
