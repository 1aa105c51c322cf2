package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/api/handlers"
	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/service"
)

type stubLookupService struct {
	lastFirst, lastLast, lastCompany string
	findProfile                      bool
	result                           *service.LookupResult
}

func (s *stubLookupService) Lookup(_ context.Context, firstName, lastName, companyURL string, findProfile bool) *service.LookupResult {
	s.lastFirst = firstName
	s.lastLast = lastName
	s.lastCompany = companyURL
	s.findProfile = findProfile

	return s.result
}

func TestLookupCreate(t *testing.T) {
	stub := &stubLookupService{
		result: &service.LookupResult{
			Outcome: &domain.VerificationOutcome{
				FirstName:       "John",
				LastName:        "Smith",
				Email:           "jsmith@example.com",
				Status:          "valid",
				CandidatesTried: []string{"jsmith@example.com"},
				CandidatesTotal: 11,
				AttemptIndex:    1,
			},
		},
	}
	h := handlers.NewLookupHandler(stub)

	body := `{"firstname":"John","lastname":"Smith","company_url":"https://example.com","find_profile":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lookups", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "John", stub.lastFirst)
	assert.Equal(t, "Smith", stub.lastLast)
	assert.Equal(t, "https://example.com", stub.lastCompany)
	assert.True(t, stub.findProfile)

	var got service.LookupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "jsmith@example.com", got.Outcome.Email)
	assert.Equal(t, 1, got.Outcome.AttemptIndex)
}

func TestLookupCreateSentinelStatusStays200(t *testing.T) {
	stub := &stubLookupService{
		result: &service.LookupResult{
			Outcome: &domain.VerificationOutcome{
				Status: domain.StatusInvalidDomain,
			},
		},
	}
	h := handlers.NewLookupHandler(stub)

	body := `{"firstname":"John","lastname":"Smith","company_url":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lookups", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got service.LookupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusInvalidDomain, got.Outcome.Status)
	assert.False(t, got.Outcome.Found())
}

func TestLookupCreateRejectsBadBody(t *testing.T) {
	h := handlers.NewLookupHandler(&stubLookupService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lookups", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLookupCreateRejectsGet(t *testing.T) {
	h := handlers.NewLookupHandler(&stubLookupService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookups", nil)
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
