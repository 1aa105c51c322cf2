// Package lookuprunner resolves a single person/company pair from the
// command line and prints the outcome as JSON.
package lookuprunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/linkedin"
	"github.com/kremlit/email-enricher/internal/oracle"
	"github.com/kremlit/email-enricher/internal/service"
	"github.com/kremlit/email-enricher/runner"
	"github.com/kremlit/email-enricher/tlmt"
)

type lookupRunner struct {
	cfg     *runner.Config
	lookups *service.LookupService
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.ReoonAPIKey == "" {
		return nil, errors.New("reoon API key required (set -reoon-key or REOON_API_KEY)")
	}

	verifier := enricher.NewVerifier(
		oracle.NewReoonClient(oracle.ReoonConfig{
			APIURL: cfg.ReoonAPIURL,
			APIKey: cfg.ReoonAPIKey,
			Mode:   cfg.ReoonMode,
		}),
		enricher.WithProbeDelay(cfg.ProbeDelay),
	)

	var finder *linkedin.Finder
	if cfg.FindProfiles {
		finder = linkedin.NewFinder()
	}

	return &lookupRunner{
		cfg:     cfg,
		lookups: service.NewLookupService(verifier, nil, finder),
	}, nil
}

func (r *lookupRunner) Run(ctx context.Context) error {
	result := r.lookups.Lookup(ctx, r.cfg.FirstName, r.cfg.LastName, r.cfg.CompanyURL, r.cfg.FindProfiles)

	evt := tlmt.NewEvent("lookup", map[string]any{
		"status":        result.Outcome.Status,
		"attempt_index": result.Outcome.AttemptIndex,
	})
	_ = runner.Telemetry().Send(ctx, evt)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(data))

	return nil
}

func (r *lookupRunner) Close(context.Context) error {
	return nil
}
