package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/cache"
	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/service"
)

func TestLookupCachesResolvedOutcome(t *testing.T) {
	o := &countingOracle{}
	verifier := enricher.NewVerifier(o, enricher.WithProbeDelay(0))
	svc := service.NewLookupService(verifier, cache.NewMemoryCache(), nil)
	ctx := context.Background()

	first := svc.Lookup(ctx, "John", "Smith", "https://example.com", false)
	require.True(t, first.Outcome.Found())
	assert.Equal(t, "jsmith@example.com", first.Outcome.Email)
	assert.Equal(t, 1, o.count())

	// Second lookup is served from cache, no oracle traffic.
	second := svc.Lookup(ctx, "John", "Smith", "https://example.com", false)
	require.True(t, second.Outcome.Found())
	assert.Equal(t, first.Outcome.Email, second.Outcome.Email)
	assert.Equal(t, 1, o.count())
}

func TestLookupDoesNotCacheSentinelOutcomes(t *testing.T) {
	o := &countingOracle{}
	verifier := enricher.NewVerifier(o, enricher.WithProbeDelay(0))
	svc := service.NewLookupService(verifier, cache.NewMemoryCache(), nil)
	ctx := context.Background()

	result := svc.Lookup(ctx, "John", "Smith", "not a domain at all", false)
	require.False(t, result.Outcome.Found())
	assert.Zero(t, o.count())

	// A bad-input outcome must not shadow a later valid lookup.
	again := svc.Lookup(ctx, "John", "Smith", "not a domain at all", false)
	assert.False(t, again.Outcome.Found())
}

func TestLookupWorksWithoutCache(t *testing.T) {
	o := &countingOracle{}
	verifier := enricher.NewVerifier(o, enricher.WithProbeDelay(0))
	svc := service.NewLookupService(verifier, nil, nil)

	result := svc.Lookup(context.Background(), "Ann", "Carter", "acme.io", false)
	require.True(t, result.Outcome.Found())
	assert.Equal(t, "acarter@acme.io", result.Outcome.Email)
}
