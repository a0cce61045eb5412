package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/repository"
)

const rejectedColumns = `
	id, original_project_id, kind, name, snapshot, rejection_reason,
	rejected_by, requested_by, action_type, rejected_at`

// Reject moves a live project into the rejected snapshots in one transaction.
func (r *ProjectRepository) Reject(ctx context.Context, rej *project.RejectedRecord, expectedVersion int64) error {
	snapshot, err := json.Marshal(rej.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND version = ?`, rej.OriginalProjectID, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if err := versionMiss(ctx, tx, result, rej.OriginalProjectID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rejected_projects (`+rejectedColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rej.ID,
			rej.OriginalProjectID,
			rej.Kind,
			rej.Name,
			string(snapshot),
			rej.RejectionReason,
			rej.RejectedBy,
			rej.RequestedBy,
			rej.ActionType,
			rej.RejectedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rejected project: %w", err)
		}
		return nil
	})
}

// GetRejected retrieves a rejected snapshot by ID
func (r *ProjectRepository) GetRejected(ctx context.Context, id string) (*project.RejectedRecord, error) {
	query := `SELECT ` + rejectedColumns + ` FROM rejected_projects WHERE id = ?`
	rej, err := scanRejected(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rejected project: %w", err)
	}
	return rej, nil
}

// ListRejected returns rejected snapshots, most recent first
func (r *ProjectRepository) ListRejected(ctx context.Context, opts project.ListRejectedOptions) ([]project.RejectedRecord, error) {
	query := `SELECT ` + rejectedColumns + ` FROM rejected_projects`
	var args []any
	if opts.Kind != "" {
		query += " WHERE kind = ?"
		args = append(args, opts.Kind)
	}
	query += " ORDER BY rejected_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected projects: %w", err)
	}
	defer rows.Close()

	var list []project.RejectedRecord
	for rows.Next() {
		rej, err := scanRejected(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rejected project: %w", err)
		}
		list = append(list, *rej)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rejected projects: %w", err)
	}
	return list, nil
}

// Restore inserts the recreated project and removes its snapshot in one transaction.
func (r *ProjectRepository) Restore(ctx context.Context, rec *project.Record, rejectedID string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM rejected_projects WHERE id = ?`, rejectedID)
		if err != nil {
			return fmt.Errorf("failed to delete rejected project: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return repository.ErrNotFound
		}
		return insertProject(ctx, tx, rec)
	})
}

// DeleteRejected permanently removes a rejected snapshot
func (r *ProjectRepository) DeleteRejected(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rejected_projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rejected project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanRejected(row rowScanner) (*project.RejectedRecord, error) {
	var rej project.RejectedRecord
	var snapshot string
	err := row.Scan(
		&rej.ID,
		&rej.OriginalProjectID,
		&rej.Kind,
		&rej.Name,
		&snapshot,
		&rej.RejectionReason,
		&rej.RejectedBy,
		&rej.RequestedBy,
		&rej.ActionType,
		&rej.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snapshot), &rej.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	rej.RejectedAt = rej.RejectedAt.UTC()
	return &rej, nil
}
