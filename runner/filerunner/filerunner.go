// Package filerunner enriches a CSV/XLSX file of contacts from disk and
// writes the outcomes next to it, without any server infrastructure.
package filerunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/export"
	"github.com/kremlit/email-enricher/internal/ingest"
	"github.com/kremlit/email-enricher/internal/linkedin"
	"github.com/kremlit/email-enricher/internal/oracle"
	"github.com/kremlit/email-enricher/runner"
	"github.com/kremlit/email-enricher/tlmt"
)

type fileRunner struct {
	cfg      *runner.Config
	verifier *enricher.Verifier
	finder   *linkedin.Finder
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.ReoonAPIKey == "" {
		return nil, errors.New("reoon API key required (set -reoon-key or REOON_API_KEY)")
	}

	gate := enricher.NewGate(cfg.ProbeDelay)
	verifier := enricher.NewVerifier(
		oracle.NewReoonClient(oracle.ReoonConfig{
			APIURL: cfg.ReoonAPIURL,
			APIKey: cfg.ReoonAPIKey,
			Mode:   cfg.ReoonMode,
		}),
		enricher.WithProbeDelay(cfg.ProbeDelay),
		enricher.WithGate(gate),
	)

	var finder *linkedin.Finder
	if cfg.FindProfiles {
		finder = linkedin.NewFinder()
	}

	return &fileRunner{
		cfg:      cfg,
		verifier: verifier,
		finder:   finder,
	}, nil
}

func (r *fileRunner) Run(ctx context.Context) error {
	table, err := ingest.ReadFile(r.cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	mapping := ingest.DetectColumns(table)

	contacts, err := ingest.Contacts(table, mapping)
	if err != nil {
		return fmt.Errorf("could not detect name and company columns in %s: %w", r.cfg.InputFile, err)
	}

	complete := contacts[:0]
	for _, c := range contacts {
		if c.IsComplete() {
			complete = append(complete, c)
		}
	}

	if len(complete) == 0 {
		return errors.New("input file has no rows with firstname, lastname and company URL")
	}

	log.Printf("[FileRunner] enriching %d contacts (dropped %d incomplete), concurrency=%d, delay=%s",
		len(complete), len(contacts)-len(complete), r.cfg.Concurrency, r.cfg.ProbeDelay)

	// Outcomes land at their input position so the output file keeps
	// the input order regardless of worker scheduling.
	outcomes := make([]*domain.VerificationOutcome, len(complete))

	var (
		mu    sync.Mutex
		found int
		calls int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, contact := range complete {
		i, contact := i, contact

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outcome := r.verifier.Verify(gctx, contact.FirstName, contact.LastName, contact.CompanyURL)
			outcomes[i] = outcome

			if r.finder != nil && outcome.Found() {
				profile := r.finder.Find(gctx, outcome.Email)
				if profile.Status == linkedin.StatusFound {
					log.Printf("[FileRunner] profile for %s: %s", outcome.Email, profile.ProfileURL)
				}
			}

			mu.Lock()
			calls += len(outcome.CandidatesTried)
			if outcome.Found() {
				found++
			}
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.write(outcomes); err != nil {
		return err
	}

	log.Printf("[FileRunner] done: %d/%d emails found, %d oracle calls",
		found, len(complete), calls)

	evt := tlmt.NewEvent("file_run", map[string]any{
		"rows":         len(complete),
		"found":        found,
		"oracle_calls": calls,
	})
	_ = runner.Telemetry().Send(ctx, evt)

	return nil
}

func (r *fileRunner) write(outcomes []*domain.VerificationOutcome) error {
	var out io.Writer = os.Stdout

	xlsx := strings.EqualFold(filepath.Ext(r.cfg.ResultsFile), ".xlsx")

	if r.cfg.ResultsFile != "stdout" {
		f, err := os.Create(r.cfg.ResultsFile)
		if err != nil {
			return fmt.Errorf("failed to create results file: %w", err)
		}
		defer f.Close()

		out = f
	}

	if xlsx {
		return export.WriteXLSX(out, outcomes, export.DefaultColumns)
	}

	return export.WriteCSV(out, outcomes, export.DefaultColumns)
}

func (r *fileRunner) Close(context.Context) error {
	return nil
}
