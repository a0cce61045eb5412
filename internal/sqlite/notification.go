package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/repository"
)

// NotificationRepository implements notification.Repository for SQLite
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (
			id, message, type, project_id, project_kind, status,
			recipient, recipient_all, note, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.Message,
		n.Type,
		n.ProjectID,
		n.ProjectKind,
		n.Status,
		n.Recipient,
		n.RecipientAll,
		n.Note,
		createdAt,
		n.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.CreatedAt = createdAt
	return nil
}

// List returns notifications matching the options, newest first
func (r *NotificationRepository) List(ctx context.Context, opts notification.ListOptions) ([]notification.Notification, error) {
	query := `
		SELECT id, message, type, project_id, project_kind, status,
		       recipient, recipient_all, note, created_at, processed_at
		FROM notifications
	`

	var conditions []string
	var args []any
	switch {
	case opts.Recipient != "" && opts.IncludeAll:
		conditions = append(conditions, "(recipient = ? OR recipient_all = 1)")
		args = append(args, opts.Recipient)
	case opts.Recipient != "":
		conditions = append(conditions, "recipient = ?")
		args = append(args, opts.Recipient)
	case opts.IncludeAll:
		conditions = append(conditions, "recipient_all = 1")
	}
	if opts.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *opts.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []notification.Notification
	for rows.Next() {
		var n notification.Notification
		var processedAt sql.NullTime
		if err := rows.Scan(
			&n.ID,
			&n.Message,
			&n.Type,
			&n.ProjectID,
			&n.ProjectKind,
			&n.Status,
			&n.Recipient,
			&n.RecipientAll,
			&n.Note,
			&n.CreatedAt,
			&processedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ProcessedAt = timePtr(processedAt)
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return list, nil
}

// MarkProcessed flips a notification to processed
func (r *NotificationRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET status = 'processed', processed_at = COALESCE(processed_at, ?)
		WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification processed: %w", err)
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

// MarkProjectProcessed flips the pending review requests of a project to
// processed. Outcome notices stay pending until their recipient reads them.
func (r *NotificationRepository) MarkProjectProcessed(ctx context.Context, projectID string, at time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET status = 'processed', processed_at = ?
		WHERE project_id = ? AND status = 'pending' AND type IN (?, ?, ?)
	`, at.UTC(), projectID, notification.TypeNew, notification.TypeEdit, notification.TypeDelete)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve notifications: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}
