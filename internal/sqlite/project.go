package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/repository"
)

// ProjectRepository implements project.Repository and project.RejectedRepository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const projectColumns = `
	id, kind, name, allocation_unit, allocation_wave, financial_year,
	location, scale, remarks, estimated_cost,
	start_date, completion_date, incident_date,
	serial_number, project_code, status, review_kind, review_payload,
	created_by, entered_by, approved_by, supervisor, estimator,
	history, created_at, modified_at, version`

// Create inserts a new project
func (r *ProjectRepository) Create(ctx context.Context, rec *project.Record) error {
	return insertProject(ctx, r.db, rec)
}

func insertProject(ctx context.Context, db execer, rec *project.Record) error {
	reviewKind, reviewPayload, err := project.EncodeReview(rec.Review)
	if err != nil {
		return err
	}
	history, err := encodeHistory(rec.History)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (
			id, kind, name, name_key, allocation_unit, allocation_wave, financial_year,
			location, scale, remarks, estimated_cost,
			start_date, completion_date, incident_date,
			serial_number, project_code, status, review_kind, review_payload,
			created_by, entered_by, approved_by, supervisor, estimator,
			history, created_at, modified_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		rec.ID,
		rec.Kind,
		rec.Name,
		project.NameKey(rec.Name),
		rec.AllocationUnit,
		rec.AllocationWave,
		rec.FinancialYear,
		rec.Location,
		rec.Scale,
		rec.Remarks,
		rec.EstimatedCost,
		rec.StartDate,
		rec.CompletionDate,
		rec.IncidentDate,
		rec.SerialNumber,
		nullString(rec.ProjectCode),
		rec.Status,
		reviewKind,
		nullBytes(reviewPayload),
		rec.CreatedBy,
		rec.EnteredBy,
		rec.ApprovedBy,
		rec.Supervisor,
		rec.Estimator,
		history,
		rec.CreatedAt.UTC(),
		rec.ModifiedAt.UTC(),
		rec.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Record, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	rec, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return rec, nil
}

// Update saves a project with optimistic concurrency control. Serial and code
// columns are owned by AssignSequence and renumbering and are not written here.
func (r *ProjectRepository) Update(ctx context.Context, rec *project.Record, expectedVersion int64) error {
	reviewKind, reviewPayload, err := project.EncodeReview(rec.Review)
	if err != nil {
		return err
	}
	history, err := encodeHistory(rec.History)
	if err != nil {
		return err
	}

	query := `
		UPDATE projects
		SET name = ?, name_key = ?, allocation_unit = ?, allocation_wave = ?, financial_year = ?,
		    location = ?, scale = ?, remarks = ?, estimated_cost = ?,
		    start_date = ?, completion_date = ?, incident_date = ?,
		    status = ?, review_kind = ?, review_payload = ?,
		    approved_by = ?, supervisor = ?, estimator = ?,
		    history = ?, modified_at = ?, version = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.Name,
		project.NameKey(rec.Name),
		rec.AllocationUnit,
		rec.AllocationWave,
		rec.FinancialYear,
		rec.Location,
		rec.Scale,
		rec.Remarks,
		rec.EstimatedCost,
		rec.StartDate,
		rec.CompletionDate,
		rec.IncidentDate,
		rec.Status,
		reviewKind,
		nullBytes(reviewPayload),
		rec.ApprovedBy,
		rec.Supervisor,
		rec.Estimator,
		history,
		rec.ModifiedAt.UTC(),
		rec.Version,
		rec.ID,
		expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	return versionMiss(ctx, r.db, result, rec.ID)
}

// Delete removes a project if its version matches
func (r *ProjectRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND version = ?`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return versionMiss(ctx, r.db, result, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// versionMiss distinguishes a missing project from a stale version when a
// versioned write touched no rows.
func versionMiss(ctx context.Context, db queryer, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check project existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// List returns projects matching the options, ordered by kind and serial number
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Record, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`

	var conditions []string
	var args []any
	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *opts.Status)
	}
	if opts.Unit != "" {
		conditions = append(conditions, "allocation_unit = ?")
		args = append(args, opts.Unit)
	}
	if opts.FinancialYear != 0 {
		conditions = append(conditions, "financial_year = ?")
		args = append(args, opts.FinancialYear)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY kind, serial_number IS NULL, serial_number, created_at, rowid"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	return r.queryProjects(ctx, query, args...)
}

// FindDuplicate returns a project sharing kind, normalized name, unit and year
func (r *ProjectRepository) FindDuplicate(ctx context.Context, k kind.Kind, nameKey, unit string, year int, excludeID string) (*project.Record, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE kind = ? AND name_key = ? AND allocation_unit = ? AND financial_year = ? AND id != ?
		LIMIT 1`
	rec, err := scanProject(r.db.QueryRowContext(ctx, query, k, nameKey, unit, year, excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate project: %w", err)
	}
	return rec, nil
}

// AssignSequence fills a project's missing serial and code. Values already
// present are kept; the stored values are returned.
func (r *ProjectRepository) AssignSequence(ctx context.Context, id string, serial *int64, projectCode string) (*int64, string, error) {
	var storedSerial sql.NullInt64
	var storedCode sql.NullString

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET serial_number = COALESCE(serial_number, ?),
			    project_code = COALESCE(project_code, ?)
			WHERE id = ?
		`, serial, nullString(projectCode), id)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicate
			}
			return fmt.Errorf("failed to assign sequence: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return repository.ErrNotFound
		}
		return tx.QueryRowContext(ctx, `SELECT serial_number, project_code FROM projects WHERE id = ?`, id).
			Scan(&storedSerial, &storedCode)
	})
	if err != nil {
		return nil, "", err
	}

	var out *int64
	if storedSerial.Valid {
		out = &storedSerial.Int64
	}
	return out, storedCode.String, nil
}

// ListUnassigned returns projects missing a serial or a code, oldest first
func (r *ProjectRepository) ListUnassigned(ctx context.Context, limit int) ([]project.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE serial_number IS NULL OR project_code IS NULL
		ORDER BY created_at, rowid
		LIMIT ?`
	return r.queryProjects(ctx, query, limit)
}

func (r *ProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]project.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var records []project.Record
	for rows.Next() {
		rec, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return records, nil
}

func scanProject(row rowScanner) (*project.Record, error) {
	var rec project.Record
	var startDate, completionDate, incidentDate sql.NullTime
	var serial sql.NullInt64
	var projectCode, reviewPayload sql.NullString
	var reviewKind, history string

	err := row.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Name,
		&rec.AllocationUnit,
		&rec.AllocationWave,
		&rec.FinancialYear,
		&rec.Location,
		&rec.Scale,
		&rec.Remarks,
		&rec.EstimatedCost,
		&startDate,
		&completionDate,
		&incidentDate,
		&serial,
		&projectCode,
		&rec.Status,
		&reviewKind,
		&reviewPayload,
		&rec.CreatedBy,
		&rec.EnteredBy,
		&rec.ApprovedBy,
		&rec.Supervisor,
		&rec.Estimator,
		&history,
		&rec.CreatedAt,
		&rec.ModifiedAt,
		&rec.Version,
	)
	if err != nil {
		return nil, err
	}

	rec.StartDate = timePtr(startDate)
	rec.CompletionDate = timePtr(completionDate)
	rec.IncidentDate = timePtr(incidentDate)
	if serial.Valid {
		rec.SerialNumber = &serial.Int64
	}
	rec.ProjectCode = projectCode.String
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.ModifiedAt = rec.ModifiedAt.UTC()

	rec.Review, err = project.DecodeReview(project.ReviewKind(reviewKind), []byte(reviewPayload.String))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(history), &rec.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &rec, nil
}

func encodeHistory(history []project.HistoryEntry) (string, error) {
	if history == nil {
		history = []project.HistoryEntry{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
