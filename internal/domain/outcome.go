package domain

import "strings"

// Sentinel statuses reported in a VerificationOutcome when no candidate
// was accepted. Any other status value comes verbatim from the oracle.
const (
	StatusNotFound      = "not_found"
	StatusInvalidDomain = "invalid_domain"
	StatusInvalidNames  = "invalid_names"
)

// Contact is one person/company pair to enrich.
type Contact struct {
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	CompanyURL string `json:"company_url"`
}

// IsComplete returns true if all three fields carry a non-blank value.
// Rows failing this check never reach the verification core.
func (c *Contact) IsComplete() bool {
	return strings.TrimSpace(c.FirstName) != "" &&
		strings.TrimSpace(c.LastName) != "" &&
		strings.TrimSpace(c.CompanyURL) != ""
}

// VerificationOutcome is the immutable result of one person/domain lookup.
// It is constructed once per Verify call and never mutated afterwards.
type VerificationOutcome struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	FullName  string `json:"full_name"`
	Company   string `json:"company"`

	// Email is the accepted candidate, empty when none was accepted.
	Email string `json:"email,omitempty"`

	// Status is the oracle status of the accepted candidate, or one of
	// the sentinel statuses above.
	Status string `json:"status"`

	// CandidatesTried lists every candidate actually sent to the oracle,
	// in probe order. It is a prefix of the full candidate list.
	CandidatesTried []string `json:"candidates_tried"`

	// CandidatesTotal is the count of all candidates that would have
	// been generated for this lookup.
	CandidatesTotal int `json:"candidates_total"`

	// AttemptIndex is the 1-based position of the accepted candidate
	// within CandidatesTried, 0 when none was accepted.
	AttemptIndex int `json:"attempt_index,omitempty"`
}

// Found returns true if an email was accepted.
func (o *VerificationOutcome) Found() bool {
	return o.Email != ""
}

// CallsSaved returns how many oracle calls early stopping avoided.
func (o *VerificationOutcome) CallsSaved() int {
	saved := o.CandidatesTotal - len(o.CandidatesTried)
	if saved < 0 {
		return 0
	}
	return saved
}
