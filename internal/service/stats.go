package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kremlit/email-enricher/internal/domain"
)

// StatsService handles statistics aggregation
type StatsService struct {
	batches   domain.BatchRepository
	outcomes  domain.OutcomeRepository
	startedAt time.Time
}

// NewStatsService creates a new StatsService
func NewStatsService(batches domain.BatchRepository, outcomes domain.OutcomeRepository) *StatsService {
	return &StatsService{
		batches:   batches,
		outcomes:  outcomes,
		startedAt: time.Now(),
	}
}

// GetStats retrieves aggregated statistics for the dashboard
func (s *StatsService) GetStats(ctx context.Context) (*domain.Stats, error) {
	batchStats, err := s.batches.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch stats: %w", err)
	}

	outcomeStats, err := s.outcomes.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome stats: %w", err)
	}

	return &domain.Stats{
		Batches:  *batchStats,
		Outcomes: *outcomeStats,
		System:   s.systemStats(ctx),
	}, nil
}

// systemStats samples host gauges. Failures degrade to zero values, the
// dashboard still renders.
func (s *StatsService) systemStats(ctx context.Context) domain.SystemStats {
	stats := domain.SystemStats{
		UptimeSeconds: uint64(time.Since(s.startedAt).Seconds()),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	} else if err != nil {
		log.Printf("[StatsService] cpu sample failed: %v", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
	} else {
		log.Printf("[StatsService] memory sample failed: %v", err)
	}

	return stats
}
