package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/linkedin"
	"github.com/kremlit/email-enricher/internal/oracle"
)

// errBatchInterrupted stops the worker pool when a batch is paused or
// cancelled from the outside.
var errBatchInterrupted = errors.New("batch interrupted")

// Processor executes batches: it fans rows out to a bounded worker pool
// while one shared rate gate keeps aggregate oracle traffic paced.
type Processor struct {
	service *BatchService
	oracle  oracle.Verifier
	finder  *linkedin.Finder
}

// NewProcessor creates a new Processor. finder may be nil.
func NewProcessor(service *BatchService, o oracle.Verifier, finder *linkedin.Finder) *Processor {
	return &Processor{
		service: service,
		oracle:  o,
		finder:  finder,
	}
}

// Process runs one batch to completion, pause or cancellation. Already
// stored outcomes are skipped so a re-dispatched batch resumes instead
// of re-spending oracle calls.
func (p *Processor) Process(ctx context.Context, batchID uuid.UUID) error {
	batch, err := p.service.GetByID(ctx, batchID)
	if err != nil {
		return err
	}

	if batch.Status.IsTerminal() {
		log.Printf("[Processor] batch %s already %s, skipping", batchID, batch.Status)
		return nil
	}

	if batch.Status == domain.BatchStatusPaused {
		log.Printf("[Processor] batch %s is paused, skipping", batchID)
		return nil
	}

	done, err := p.service.outcomes.CountByBatchID(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to count outcomes: %w", err)
	}

	if done >= len(batch.Rows) {
		return p.service.Complete(ctx, batchID)
	}

	if err := p.service.batches.UpdateStatus(ctx, batchID, domain.BatchStatusRunning); err != nil {
		return fmt.Errorf("failed to mark batch running: %w", err)
	}

	log.Printf("[Processor] batch %s: %d/%d rows remaining, concurrency=%d, delay=%s",
		batchID, len(batch.Rows)-done, len(batch.Rows), batch.Config.Concurrency, batch.Config.ProbeDelay)

	gate := enricher.NewGate(batch.Config.ProbeDelay)
	verifier := enricher.NewVerifier(p.oracle,
		enricher.WithProbeDelay(batch.Config.ProbeDelay),
		enricher.WithGate(gate),
	)

	var mu sync.Mutex
	progress := batch.Progress
	progress.ProcessedRows = done

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batch.Config.Concurrency)

	for _, row := range batch.Rows[done:] {
		row := row

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if interrupted, err := p.interrupted(gctx, batchID); err != nil {
				return err
			} else if interrupted {
				return errBatchInterrupted
			}

			outcome := verifier.Verify(gctx, row.FirstName, row.LastName, row.CompanyURL)

			if err := p.service.outcomes.Save(gctx, batchID, outcome); err != nil {
				return fmt.Errorf("failed to save outcome: %w", err)
			}

			if batch.Config.FindProfiles && p.finder != nil && outcome.Found() {
				profile := p.finder.Find(gctx, outcome.Email)
				if profile.Status == linkedin.StatusFound {
					log.Printf("[Processor] profile for %s: %s", outcome.Email, profile.ProfileURL)
				}
			}

			mu.Lock()
			progress.ProcessedRows++
			progress.OracleCalls += len(outcome.CandidatesTried)
			if outcome.Found() {
				progress.FoundEmails++
			}
			snapshot := progress
			mu.Unlock()

			if err := p.service.UpdateProgress(gctx, batchID, snapshot); err != nil {
				log.Printf("[Processor] progress update failed for batch %s: %v", batchID, err)
			}

			return nil
		})
	}

	err = g.Wait()

	switch {
	case err == nil:
		log.Printf("[Processor] batch %s completed: %d emails found, %d oracle calls",
			batchID, progress.FoundEmails, progress.OracleCalls)
		return p.service.Complete(ctx, batchID)

	case errors.Is(err, errBatchInterrupted):
		log.Printf("[Processor] batch %s interrupted, %d/%d rows processed",
			batchID, progress.ProcessedRows, progress.TotalRows)
		return nil

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Shutdown mid-batch. Leave status running; the stale-batch
		// watchdog returns it to pending for re-dispatch.
		log.Printf("[Processor] batch %s stopped by shutdown", batchID)
		return err

	default:
		if failErr := p.service.Fail(ctx, batchID, err.Error()); failErr != nil {
			log.Printf("[Processor] failed to mark batch %s failed: %v", batchID, failErr)
		}
		return err
	}
}

// interrupted re-reads the batch status so external pause/cancel takes
// effect between rows.
func (p *Processor) interrupted(ctx context.Context, batchID uuid.UUID) (bool, error) {
	batch, err := p.service.batches.GetByID(ctx, batchID)
	if err != nil {
		return false, fmt.Errorf("failed to check batch status: %w", err)
	}
	if batch == nil {
		return false, ErrBatchNotFound
	}

	switch batch.Status {
	case domain.BatchStatusPaused, domain.BatchStatusCancelled:
		return true, nil
	default:
		return false, nil
	}
}
