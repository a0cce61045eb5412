package sequence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/worksreg/internal/domain/kind"
)

// Service allocates and renumbers dense per-kind serial numbers.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new sequence service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Next returns the next serial for a kind.
func (s *Service) Next(ctx context.Context, k kind.Kind) (int64, error) {
	if !k.Valid() {
		return 0, fmt.Errorf("%w: unknown kind %q", ErrAllocation, k)
	}
	serial, err := s.repo.IncrementSerial(ctx, k)
	if err != nil {
		return 0, fmt.Errorf("%w: incrementing %s counter: %v", ErrAllocation, k, err)
	}
	return serial, nil
}

// Renumber restores the dense 1..N serial range for a kind. Calling it twice
// without an intervening mutation yields identical serials.
func (s *Service) Renumber(ctx context.Context, k kind.Kind) (int, error) {
	if !k.Valid() {
		return 0, fmt.Errorf("%w: unknown kind %q", ErrAllocation, k)
	}
	count, err := s.repo.Renumber(ctx, k)
	if err != nil {
		s.logger.Error("renumber failed", "kind", k, "error", err)
		return 0, fmt.Errorf("%w: renumbering %s: %v", ErrAllocation, k, err)
	}
	s.logger.Debug("renumbered serials", "kind", k, "count", count)
	return count, nil
}

// IsDense reports whether a kind's serials currently form an unbroken 1..N range.
func (s *Service) IsDense(ctx context.Context, k kind.Kind) (bool, Stats, error) {
	stats, err := s.repo.SerialStats(ctx, k)
	if err != nil {
		return false, Stats{}, fmt.Errorf("loading %s serial stats: %w", k, err)
	}
	return stats.Dense(), stats, nil
}
