package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/sequence"
	"github.com/rpggio/worksreg/internal/repository"
)

// CounterRepository implements sequence.Repository and code.Repository for SQLite
type CounterRepository struct {
	db *DB
}

// NewCounterRepository creates a new CounterRepository
func NewCounterRepository(db *DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// IncrementSerial atomically advances the serial counter of a kind
func (r *CounterRepository) IncrementSerial(ctx context.Context, k kind.Kind) (int64, error) {
	var serial int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO serial_counters (kind, current_serial) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET current_serial = current_serial + 1
		RETURNING current_serial
	`, k).Scan(&serial)
	if err != nil {
		return 0, fmt.Errorf("failed to increment serial counter: %w", err)
	}
	return serial, nil
}

// Renumber assigns dense serials in creation order and resets the counter.
// Rows still waiting for their first serial are left to their own allocation.
func (r *CounterRepository) Renumber(ctx context.Context, k kind.Kind) (int, error) {
	var count int
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		type row struct {
			id     string
			serial sql.NullInt64
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT id, serial_number FROM projects
			WHERE kind = ? AND serial_number IS NOT NULL
			ORDER BY created_at, rowid
		`, k)
		if err != nil {
			return fmt.Errorf("failed to load serials: %w", err)
		}
		var current []row
		for rows.Next() {
			var rw row
			if err := rows.Scan(&rw.id, &rw.serial); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan serial: %w", err)
			}
			current = append(current, rw)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to close serial rows: %w", err)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating serials: %w", err)
		}

		for i, rw := range current {
			want := int64(i + 1)
			if rw.serial.Valid && rw.serial.Int64 == want {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE projects SET serial_number = ? WHERE id = ?`, want, rw.id); err != nil {
				return fmt.Errorf("failed to renumber project %s: %w", rw.id, err)
			}
		}

		count = len(current)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO serial_counters (kind, current_serial) VALUES (?, ?)
			ON CONFLICT(kind) DO UPDATE SET current_serial = excluded.current_serial
		`, k, count)
		if err != nil {
			return fmt.Errorf("failed to reset serial counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SerialStats summarizes the live serials of a kind
func (r *CounterRepository) SerialStats(ctx context.Context, k kind.Kind) (sequence.Stats, error) {
	var stats sequence.Stats
	var assigned int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(serial_number), COUNT(DISTINCT serial_number),
		       COALESCE(MIN(serial_number), 0), COALESCE(MAX(serial_number), 0)
		FROM projects WHERE kind = ?
	`, k).Scan(&stats.Count, &assigned, &stats.Distinct, &stats.Min, &stats.Max)
	if err != nil {
		return sequence.Stats{}, fmt.Errorf("failed to load serial stats: %w", err)
	}
	stats.Missing = stats.Count - assigned

	err = r.db.QueryRowContext(ctx, `SELECT current_serial FROM serial_counters WHERE kind = ?`, k).Scan(&stats.Counter)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sequence.Stats{}, fmt.Errorf("failed to load serial counter: %w", err)
	}
	return stats, nil
}

// IncrementCode atomically advances a project code counter
func (r *CounterRepository) IncrementCode(ctx context.Context, key code.Key) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO code_counters (financial_year, kind, unit_code, wave_code, current_serial, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(financial_year, kind, unit_code, wave_code)
		DO UPDATE SET current_serial = current_serial + 1, updated_at = excluded.updated_at
		RETURNING current_serial
	`, key.FinancialYear, key.Kind, key.UnitCode, key.WaveCode, time.Now().UTC()).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to increment code counter: %w", err)
	}
	return seq, nil
}

// CurrentCode returns a project code counter's value, 0 if it does not exist
func (r *CounterRepository) CurrentCode(ctx context.Context, key code.Key) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `
		SELECT current_serial FROM code_counters
		WHERE financial_year = ? AND kind = ? AND unit_code = ? AND wave_code = ?
	`, key.FinancialYear, key.Kind, key.UnitCode, key.WaveCode).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read code counter: %w", err)
	}
	return seq, nil
}

// DistinctUnits lists the allocation units referenced by live projects
func (r *CounterRepository) DistinctUnits(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT allocation_unit FROM projects ORDER BY allocation_unit`)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating units: %w", err)
	}
	return units, nil
}

// StandardizeScope rewrites every code in a unit scope and resynchronizes the
// counters in one transaction.
func (r *CounterRepository) StandardizeScope(ctx context.Context, scope code.Scope, planner code.Planner) (code.Plan, error) {
	var plan code.Plan
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			SELECT id, kind, financial_year, allocation_wave, COALESCE(project_code, ''), created_at
			FROM projects WHERE allocation_unit = ?`
		args := []any{scope.Unit}
		if scope.Wave != "" {
			query += ` AND allocation_wave = ?`
			args = append(args, scope.Wave)
		}
		query += ` ORDER BY created_at, rowid`

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to load scope: %w", err)
		}
		var entries []code.ScopeEntry
		for rows.Next() {
			var e code.ScopeEntry
			if err := rows.Scan(&e.ProjectID, &e.Kind, &e.FinancialYear, &e.Wave, &e.Code, &e.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan scope entry: %w", err)
			}
			entries = append(entries, e)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to close scope rows: %w", err)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating scope: %w", err)
		}

		plan, err = planner(entries)
		if err != nil {
			return err
		}

		// Park every code first so reassignments within the scope cannot collide.
		for _, a := range plan.Assignments {
			if _, err := tx.ExecContext(ctx, `UPDATE projects SET project_code = '~' || id WHERE id = ?`, a.ProjectID); err != nil {
				return fmt.Errorf("failed to park code for %s: %w", a.ProjectID, err)
			}
		}
		for _, a := range plan.Assignments {
			if _, err := tx.ExecContext(ctx, `UPDATE projects SET project_code = ? WHERE id = ?`, a.Code, a.ProjectID); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("code %s already used outside the scope: %w", a.Code, repository.ErrDuplicate)
				}
				return fmt.Errorf("failed to write code for %s: %w", a.ProjectID, err)
			}
		}

		now := time.Now().UTC()
		for _, c := range plan.Counters {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO code_counters (financial_year, kind, unit_code, wave_code, current_serial, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(financial_year, kind, unit_code, wave_code)
				DO UPDATE SET current_serial = excluded.current_serial, updated_at = excluded.updated_at
			`, c.Key.FinancialYear, c.Key.Kind, c.Key.UnitCode, c.Key.WaveCode, c.Value, now)
			if err != nil {
				return fmt.Errorf("failed to resync code counter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return code.Plan{}, err
	}
	return plan, nil
}
