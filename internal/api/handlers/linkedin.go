package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kremlit/email-enricher/internal/linkedin"
)

// ProfileFinderInterface defines the profile finder methods
type ProfileFinderInterface interface {
	Find(ctx context.Context, email string) *linkedin.Result
}

// LinkedInHandler handles profile lookup HTTP requests
type LinkedInHandler struct {
	finder ProfileFinderInterface
}

// NewLinkedInHandler creates a new LinkedInHandler
func NewLinkedInHandler(finder ProfileFinderInterface) *LinkedInHandler {
	return &LinkedInHandler{finder: finder}
}

// ProfileRequest is the body of POST /api/v1/linkedin
type ProfileRequest struct {
	Email string `json:"email"`
}

// Find handles POST /api/v1/linkedin
func (h *LinkedInHandler) Find(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		RenderError(w, http.StatusBadRequest, "Missing email")
		return
	}

	RenderJSON(w, http.StatusOK, h.finder.Find(r.Context(), req.Email))
}
