// Package oracle wraps the external email-verification service.
package oracle

import "context"

// Verifier is the capability the verification loop consumes. The wire
// protocol behind it is swappable; tests use stubs.
type Verifier interface {
	Verify(ctx context.Context, email string) (*Result, error)
}

// Result is the oracle's verdict for one email address
type Result struct {
	Email  string `json:"email"`
	Status string `json:"status"` // valid, invalid, disabled, unknown, safe, catch-all, ...
	Reason string `json:"reason,omitempty"`
}

// NoOpVerifier accepts every email (tests / disabled mode)
type NoOpVerifier struct{}

// Verify always returns a valid result for NoOpVerifier
func (v *NoOpVerifier) Verify(_ context.Context, email string) (*Result, error) {
	return &Result{
		Email:  email,
		Status: "valid",
	}, nil
}
