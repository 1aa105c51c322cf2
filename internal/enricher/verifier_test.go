package enricher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/oracle"
)

// scriptedOracle replays a fixed status per call, recording every email
// it is asked about. An empty status means "fail with a transport error".
type scriptedOracle struct {
	statuses []string
	calls    []string
}

func (s *scriptedOracle) Verify(_ context.Context, email string) (*oracle.Result, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, email)

	status := "invalid"
	if idx < len(s.statuses) {
		status = s.statuses[idx]
	}

	if status == "" {
		return nil, errors.New("connection reset")
	}

	return &oracle.Result{Email: email, Status: status}, nil
}

func newTestVerifier(o oracle.Verifier) *enricher.Verifier {
	return enricher.NewVerifier(o, enricher.WithProbeDelay(0))
}

func TestVerifyAcceptsFirstCandidate(t *testing.T) {
	stub := &scriptedOracle{statuses: []string{"valid"}}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "https://www.example.com/about")

	require.True(t, got.Found())
	assert.Equal(t, "jsmith@example.com", got.Email)
	assert.Equal(t, "valid", got.Status)
	assert.Equal(t, 1, got.AttemptIndex)
	assert.Equal(t, []string{"jsmith@example.com"}, got.CandidatesTried)
	assert.Equal(t, 11, got.CandidatesTotal)
	assert.Equal(t, 10, got.CallsSaved())
	assert.Equal(t, "example.com", got.Company)
	assert.Equal(t, "John Smith", got.FullName)
}

func TestVerifyStopsAtFirstAcceptedCandidate(t *testing.T) {
	stub := &scriptedOracle{statuses: []string{"invalid", "disabled", "safe"}}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "example.com")

	require.True(t, got.Found())
	assert.Equal(t, "john.smith@example.com", got.Email)
	assert.Equal(t, "safe", got.Status)
	assert.Equal(t, 3, got.AttemptIndex)
	assert.Equal(t, []string{
		"jsmith@example.com",
		"john@example.com",
		"john.smith@example.com",
	}, got.CandidatesTried)
	assert.Equal(t, stub.calls, got.CandidatesTried)
}

func TestVerifyExhaustsAllCandidates(t *testing.T) {
	stub := &scriptedOracle{} // every call answers "invalid"
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "example.com")

	assert.False(t, got.Found())
	assert.Empty(t, got.Email)
	assert.Equal(t, domain.StatusNotFound, got.Status)
	assert.Equal(t, 0, got.AttemptIndex)
	assert.Len(t, got.CandidatesTried, 11)
	assert.Equal(t, 11, got.CandidatesTotal)
	assert.Equal(t, 0, got.CallsSaved())
}

func TestVerifyRejectsUnknownStatus(t *testing.T) {
	stub := &scriptedOracle{statuses: []string{"unknown", "valid"}}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "example.com")

	require.True(t, got.Found())
	assert.Equal(t, "john@example.com", got.Email)
	assert.Equal(t, 2, got.AttemptIndex)
}

func TestVerifyAbsorbsTransportErrors(t *testing.T) {
	// Candidate 2 fails at transport level; the loop still probes
	// candidate 3 and accepts it.
	stub := &scriptedOracle{statuses: []string{"invalid", "", "valid"}}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "example.com")

	require.True(t, got.Found())
	assert.Equal(t, "john.smith@example.com", got.Email)
	assert.Equal(t, 3, got.AttemptIndex)
	assert.Len(t, got.CandidatesTried, 3)
}

func TestVerifyAllTransportErrorsMeansNotFound(t *testing.T) {
	stub := &scriptedOracle{statuses: []string{
		"", "", "", "", "", "", "", "", "", "", "",
	}}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "example.com")

	assert.False(t, got.Found())
	assert.Equal(t, domain.StatusNotFound, got.Status)
	assert.Len(t, got.CandidatesTried, 11)
}

func TestVerifyInvalidDomain(t *testing.T) {
	stub := &scriptedOracle{}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "John", "Smith", "   ")

	assert.Equal(t, domain.StatusInvalidDomain, got.Status)
	assert.Empty(t, got.CandidatesTried)
	assert.Zero(t, got.CandidatesTotal)
	assert.Empty(t, stub.calls, "oracle must not be called for a blank domain")
}

func TestVerifyInvalidNames(t *testing.T) {
	stub := &scriptedOracle{}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "123", "456", "example.com")

	assert.Equal(t, domain.StatusInvalidNames, got.Status)
	assert.Empty(t, got.CandidatesTried)
	assert.Empty(t, stub.calls)
}

func TestVerifyMiddleNameProbesFourteen(t *testing.T) {
	stub := &scriptedOracle{}
	v := newTestVerifier(stub)

	got := v.Verify(context.Background(), "Ann", "Beth Carter", "example.com")

	assert.Equal(t, domain.StatusNotFound, got.Status)
	assert.Equal(t, 14, got.CandidatesTotal)
	assert.Len(t, got.CandidatesTried, 14)
}

func TestVerifyDeterministic(t *testing.T) {
	first := newTestVerifier(&scriptedOracle{statuses: []string{"invalid", "valid"}}).
		Verify(context.Background(), "John", "Smith", "example.com")
	second := newTestVerifier(&scriptedOracle{statuses: []string{"invalid", "valid"}}).
		Verify(context.Background(), "John", "Smith", "example.com")

	assert.Equal(t, first, second)
}

func TestVerifyContextCancelBlocksOracleCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &scriptedOracle{}
	v := enricher.NewVerifier(stub,
		enricher.WithProbeDelay(0),
		enricher.WithGate(enricher.NewGate(time.Millisecond)))

	got := v.Verify(ctx, "John", "Smith", "example.com")

	assert.False(t, got.Found())
	assert.Equal(t, domain.StatusNotFound, got.Status)
	assert.Empty(t, stub.calls, "a cancelled context must not reach the oracle")
}
