package enricher

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mcnijman/go-emailaddress"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/oracle"
)

// forbiddenStatuses disqualify a candidate from acceptance. Everything
// else the oracle reports (valid, safe, catch-all, risky, ...) accepts.
// Rejecting "unknown" outright is a policy choice carried over from the
// original acceptance rules.
var forbiddenStatuses = map[string]struct{}{
	"invalid":  {},
	"disabled": {},
	"unknown":  {},
}

// DefaultProbeDelay is the default pause between two oracle calls for
// the same person.
const DefaultProbeDelay = 300 * time.Millisecond

// Verifier runs the candidate generation + early-stopping probe loop
type Verifier struct {
	oracle oracle.Verifier
	delay  time.Duration
	gate   *Gate
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithProbeDelay overrides the inter-request delay within one person's
// probe sequence.
func WithProbeDelay(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.delay = d
	}
}

// WithGate installs a shared rate gate applied before every oracle call.
// Workers probing concurrently share one Gate.
func WithGate(g *Gate) VerifierOption {
	return func(v *Verifier) {
		v.gate = g
	}
}

// NewVerifier creates a Verifier backed by the given oracle client
func NewVerifier(o oracle.Verifier, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		oracle: o,
		delay:  DefaultProbeDelay,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify resolves one person/company pair to a VerificationOutcome.
// It never returns an error: invalid inputs and exhaustion are reported
// as structured outcomes, and oracle failures only skip the candidate
// they occurred on.
func (v *Verifier) Verify(ctx context.Context, firstName, lastName, companyURL string) *domain.VerificationOutcome {
	fullName := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))

	outcome := &domain.VerificationOutcome{
		FirstName:       firstName,
		LastName:        lastName,
		FullName:        fullName,
		CandidatesTried: []string{},
	}

	domainName := CleanDomain(companyURL)
	if domainName == "" {
		outcome.Status = domain.StatusInvalidDomain
		return outcome
	}

	outcome.Company = domainName

	name, ok := ParseName(fullName)
	if !ok || name.First == "" || name.Last == "" {
		outcome.Status = domain.StatusInvalidNames
		return outcome
	}

	candidates := GenerateCandidates(name, domainName)
	outcome.CandidatesTotal = len(candidates)

	if len(candidates) == 0 {
		outcome.Status = domain.StatusNotFound
		return outcome
	}

	for i, candidate := range candidates {
		outcome.CandidatesTried = append(outcome.CandidatesTried, candidate)

		result, err := v.probe(ctx, candidate)
		if err != nil {
			// Transport-level failure: this candidate only. The rest of
			// the list still gets probed.
			log.Printf("[verifier] oracle error for %s: %v", candidate, err)
			continue
		}

		if _, forbidden := forbiddenStatuses[result.Status]; !forbidden {
			outcome.Email = candidate
			outcome.Status = result.Status
			outcome.AttemptIndex = i + 1

			return outcome
		}

		if i < len(candidates)-1 {
			if err := v.sleep(ctx); err != nil {
				break
			}
		}
	}

	outcome.Status = domain.StatusNotFound

	return outcome
}

// probe validates candidate syntax locally, then asks the oracle.
func (v *Verifier) probe(ctx context.Context, candidate string) (*oracle.Result, error) {
	if _, err := emailaddress.Parse(candidate); err != nil {
		return nil, err
	}

	if v.gate != nil {
		if err := v.gate.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return v.oracle.Verify(ctx, candidate)
}

func (v *Verifier) sleep(ctx context.Context) error {
	if v.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(v.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
