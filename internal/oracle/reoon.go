package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ReoonClient verifies emails using the Reoon Email Verifier API
type ReoonClient struct {
	apiURL     string
	apiKey     string
	mode       string
	httpClient *http.Client
}

// ReoonConfig for the Reoon verifier client
type ReoonConfig struct {
	APIURL  string // e.g., "https://emailverifier.reoon.com/api/v1"
	APIKey  string // key query parameter
	Mode    string // "power" (SMTP level) or "quick"
	Timeout time.Duration
}

// NewReoonClient creates a new Reoon verifier client
func NewReoonClient(cfg ReoonConfig) *ReoonClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		// Power mode performs live SMTP checks which can be slow on
		// greylisting mail servers.
		timeout = 30 * time.Second
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://emailverifier.reoon.com/api/v1"
	}
	apiURL = strings.TrimSuffix(apiURL, "/")

	mode := cfg.Mode
	if mode == "" {
		mode = "power"
	}

	return &ReoonClient{
		apiURL: apiURL,
		apiKey: cfg.APIKey,
		mode:   mode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// reoonResponse is the API response format from Reoon
type reoonResponse struct {
	Email          string `json:"email"`
	Status         string `json:"status"`
	IsSafeToSend   bool   `json:"is_safe_to_send"`
	IsDisposable   bool   `json:"is_disposable"`
	IsRoleAccount  bool   `json:"is_role_account"`
	CanConnectSMTP bool   `json:"can_connect_smtp"`
	IsCatchAll     bool   `json:"is_catch_all"`
	IsDeliverable  bool   `json:"is_deliverable"`
	MXAcceptsMail  bool   `json:"mx_accepts_mail"`
	Reason         string `json:"reason"`
}

// Verify verifies a single email using the Reoon API.
// Any non-200 response or decode failure is a transport error; the
// caller decides what to do with it (the verification loop skips the
// candidate and moves on).
func (c *ReoonClient) Verify(ctx context.Context, email string) (*Result, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("key", c.apiKey)
	q.Set("mode", c.mode)

	reqURL := fmt.Sprintf("%s/verify?%s", c.apiURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Reoon API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if len(errBody) > 0 {
			return nil, fmt.Errorf("Reoon API returned status %d: %s", resp.StatusCode, string(errBody))
		}

		return nil, fmt.Errorf("Reoon API returned status %d", resp.StatusCode)
	}

	var apiResp reoonResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	status := apiResp.Status
	if status == "" {
		status = "unknown"
	}

	return &Result{
		Email:  email,
		Status: status,
		Reason: apiResp.Reason,
	}, nil
}
