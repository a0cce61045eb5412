// Package sweep periodically repairs serial density and backfills missing
// serials and codes left behind by failed best-effort allocation.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/sequence"
)

// DefaultSchedule runs the sweep every five minutes.
const DefaultSchedule = "@every 5m"

const (
	backfillBatch = 200
	runTimeout    = 2 * time.Minute
)

// Serials checks and restores serial density.
type Serials interface {
	IsDense(ctx context.Context, k kind.Kind) (bool, sequence.Stats, error)
	Renumber(ctx context.Context, k kind.Kind) (int, error)
}

// Backfiller allocates serials and codes for records missing them.
type Backfiller interface {
	Backfill(ctx context.Context, limit int) (int, error)
}

// Report summarizes one sweep.
type Report struct {
	Backfilled int               `json:"backfilled"`
	Renumbered map[kind.Kind]int `json:"renumbered,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
}

// Sweeper runs the repair pass on a cron schedule.
type Sweeper struct {
	serials  Serials
	backfill Backfiller
	logger   *slog.Logger
	schedule string
	cron     *cron.Cron
}

// New creates a sweeper. An empty schedule uses DefaultSchedule.
func New(serials Serials, backfill Backfiller, schedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{serials: serials, backfill: backfill, logger: logger, schedule: schedule}
}

// RunOnce backfills missing allocations, then renumbers every non-dense kind.
func (s *Sweeper) RunOnce(ctx context.Context) Report {
	report := Report{Renumbered: map[kind.Kind]int{}}

	if s.backfill != nil {
		n, err := s.backfill.Backfill(ctx, backfillBatch)
		if err != nil {
			s.logger.Error("sweep backfill failed", "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("backfill: %v", err))
		}
		report.Backfilled = n
	}

	for _, k := range kind.All {
		dense, stats, err := s.serials.IsDense(ctx, k)
		if err != nil {
			s.logger.Error("sweep density check failed", "kind", k, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", k, err))
			continue
		}
		if dense {
			continue
		}
		s.logger.Warn("serials not dense, renumbering", "kind", k,
			"count", stats.Count, "missing", stats.Missing, "max", stats.Max, "counter", stats.Counter)
		count, err := s.serials.Renumber(ctx, k)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", k, err))
			continue
		}
		report.Renumbered[k] = count
	}

	if len(report.Errors) > 0 {
		s.logger.Error("sweep finished with errors", "errors", len(report.Errors))
	} else if report.Backfilled > 0 || len(report.Renumbered) > 0 {
		s.logger.Info("sweep repaired records", "backfilled", report.Backfilled, "renumbered", len(report.Renumbered))
	}
	return report
}

// Start schedules the sweep. Overlapping runs are skipped.
func (s *Sweeper) Start() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("sweep scheduled", "schedule", s.schedule)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
