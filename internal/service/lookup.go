package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/kremlit/email-enricher/internal/cache"
	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/linkedin"
)

// LookupService resolves single person/domain lookups, caching resolved
// outcomes so repeated lookups cost zero oracle calls.
type LookupService struct {
	verifier *enricher.Verifier
	cache    cache.Cache
	finder   *linkedin.Finder
}

// NewLookupService creates a new LookupService. finder may be nil when
// profile lookup is disabled.
func NewLookupService(verifier *enricher.Verifier, c cache.Cache, finder *linkedin.Finder) *LookupService {
	if c == nil {
		c = cache.NewNoOpCache()
	}

	return &LookupService{
		verifier: verifier,
		cache:    c,
		finder:   finder,
	}
}

// LookupResult bundles the verification outcome with an optional
// LinkedIn profile hit.
type LookupResult struct {
	Outcome *domain.VerificationOutcome `json:"outcome"`
	Profile *linkedin.Result            `json:"profile,omitempty"`
}

// Lookup resolves one person/company pair. The outcome is cached only
// when an email was accepted; misses may be transient (oracle outages)
// and stay uncached.
func (s *LookupService) Lookup(ctx context.Context, firstName, lastName, companyURL string, findProfile bool) *LookupResult {
	key := cache.LookupKey(firstName, lastName, enricher.CleanDomain(companyURL))

	if outcome := s.cached(ctx, key); outcome != nil {
		log.Printf("[LookupService] cache hit for %s %s", firstName, lastName)
		return s.withProfile(ctx, outcome, findProfile)
	}

	outcome := s.verifier.Verify(ctx, firstName, lastName, companyURL)

	if outcome.Found() {
		if data, err := json.Marshal(outcome); err == nil {
			if err := s.cache.Set(ctx, key, data, cache.TTLLookup); err != nil {
				log.Printf("[LookupService] cache set failed: %v", err)
			}
		}
	}

	return s.withProfile(ctx, outcome, findProfile)
}

func (s *LookupService) cached(ctx context.Context, key string) *domain.VerificationOutcome {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("[LookupService] cache get failed: %v", err)
		}
		return nil
	}

	var outcome domain.VerificationOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		log.Printf("[LookupService] dropping corrupt cache entry %s: %v", key, err)
		_ = s.cache.Delete(ctx, key)
		return nil
	}

	return &outcome
}

func (s *LookupService) withProfile(ctx context.Context, outcome *domain.VerificationOutcome, findProfile bool) *LookupResult {
	result := &LookupResult{Outcome: outcome}

	if findProfile && s.finder != nil && outcome.Found() {
		result.Profile = s.finder.Find(ctx, outcome.Email)
	}

	return result
}
