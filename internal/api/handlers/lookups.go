package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kremlit/email-enricher/internal/service"
)

// LookupServiceInterface defines the lookup service methods
type LookupServiceInterface interface {
	Lookup(ctx context.Context, firstName, lastName, companyURL string, findProfile bool) *service.LookupResult
}

// LookupHandler handles single-lookup HTTP requests
type LookupHandler struct {
	lookups LookupServiceInterface
}

// NewLookupHandler creates a new LookupHandler
func NewLookupHandler(lookups LookupServiceInterface) *LookupHandler {
	return &LookupHandler{lookups: lookups}
}

// LookupRequest is the body of POST /api/v1/lookups
type LookupRequest struct {
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	CompanyURL  string `json:"company_url"`
	FindProfile bool   `json:"find_profile"`
}

// Create handles POST /api/v1/lookups. The response is always 200 with
// a structured outcome; bad inputs surface as sentinel statuses, not
// HTTP errors.
func (h *LookupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.lookups.Lookup(r.Context(), req.FirstName, req.LastName, req.CompanyURL, req.FindProfile)

	RenderJSON(w, http.StatusOK, result)
}
