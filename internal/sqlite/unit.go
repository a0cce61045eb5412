package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/repository"
)

// UnitRepository implements code.Directory for SQLite
type UnitRepository struct {
	db *DB
}

// NewUnitRepository creates a new UnitRepository
func NewUnitRepository(db *DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// CreateUnit inserts an allocation unit
func (r *UnitRepository) CreateUnit(ctx context.Context, u code.Unit) error {
	return r.insert(ctx, "allocation_units", u.ID, u.Name, u.ShortCode)
}

// CreateWave inserts an allocation wave
func (r *UnitRepository) CreateWave(ctx context.Context, w code.Wave) error {
	return r.insert(ctx, "allocation_waves", w.ID, w.Name, w.ShortCode)
}

func (r *UnitRepository) insert(ctx context.Context, table, id, name, shortCode string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, name, short_code) VALUES (?, ?, ?)`,
		id, strings.TrimSpace(name), strings.TrimSpace(shortCode),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// FindUnit resolves a unit by id or case-insensitive name
func (r *UnitRepository) FindUnit(ctx context.Context, ident string) (*code.Unit, error) {
	var u code.Unit
	err := r.find(ctx, "allocation_units", ident).Scan(&u.ID, &u.Name, &u.ShortCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find unit: %w", err)
	}
	return &u, nil
}

// FindWave resolves a wave by id or case-insensitive name
func (r *UnitRepository) FindWave(ctx context.Context, ident string) (*code.Wave, error) {
	var w code.Wave
	err := r.find(ctx, "allocation_waves", ident).Scan(&w.ID, &w.Name, &w.ShortCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wave: %w", err)
	}
	return &w, nil
}

func (r *UnitRepository) find(ctx context.Context, table, ident string) *sql.Row {
	ident = strings.TrimSpace(ident)
	return r.db.QueryRowContext(ctx, `SELECT id, name, short_code FROM `+table+`
		WHERE id = ? OR lower(name) = lower(?)
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1`, ident, ident, ident)
}

// ListWaves returns every allocation wave
func (r *UnitRepository) ListWaves(ctx context.Context) ([]code.Wave, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, short_code FROM allocation_waves ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list waves: %w", err)
	}
	defer rows.Close()

	var waves []code.Wave
	for rows.Next() {
		var w code.Wave
		if err := rows.Scan(&w.ID, &w.Name, &w.ShortCode); err != nil {
			return nil, fmt.Errorf("failed to scan wave: %w", err)
		}
		waves = append(waves, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waves: %w", err)
	}
	return waves, nil
}
