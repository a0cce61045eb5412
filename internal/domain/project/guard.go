package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/repository"
)

// DuplicateGuard enforces that no two records of a kind share name, unit and year.
type DuplicateGuard struct {
	records Repository
}

// NewDuplicateGuard creates a guard over the record store.
func NewDuplicateGuard(records Repository) *DuplicateGuard {
	return &DuplicateGuard{records: records}
}

// Check returns ErrDuplicateProject if another record, other than excludeID,
// already holds the triple.
func (g *DuplicateGuard) Check(ctx context.Context, k kind.Kind, name, unit string, year int, excludeID string) error {
	existing, err := g.records.FindDuplicate(ctx, k, NameKey(name), unit, year, excludeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("checking duplicates: %w", err)
	}
	return duplicateError(existing.Name, existing.FinancialYear)
}

// CheckRecord runs Check with the record's current values.
func (g *DuplicateGuard) CheckRecord(ctx context.Context, r *Record) error {
	return g.Check(ctx, r.Kind, r.Name, r.AllocationUnit, r.FinancialYear, r.ID)
}
