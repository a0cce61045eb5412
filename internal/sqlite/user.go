package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/worksreg/internal/domain/user"
	"github.com/rpggio/worksreg/internal/repository"
)

// UserRepository implements user.Repository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, display_name, role, can_add, can_edit, can_delete, can_approve, created_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Username,
		u.DisplayName,
		u.Role,
		u.Permissions.Add,
		u.Permissions.Edit,
		u.Permissions.Delete,
		u.Permissions.Approve,
		u.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// FindByIdentifier matches id, then username, then display name (case-insensitive)
func (r *UserRepository) FindByIdentifier(ctx context.Context, ident string) (*user.User, error) {
	ident = strings.TrimSpace(ident)
	query := `SELECT ` + userColumns + ` FROM users
		WHERE id = ? OR lower(username) = lower(?) OR lower(display_name) = lower(?)
		ORDER BY CASE
			WHEN id = ? THEN 0
			WHEN lower(username) = lower(?) THEN 1
			ELSE 2
		END
		LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, ident, ident, ident, ident, ident))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// ListApprovers returns users holding approval rights
func (r *UserRepository) ListApprovers(ctx context.Context) ([]user.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE role = 'admin' OR can_approve = 1
		ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvers: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var createdAt sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.Role,
		&u.Permissions.Add,
		&u.Permissions.Edit,
		&u.Permissions.Delete,
		&u.Permissions.Approve,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time.UTC()
	}
	return &u, nil
}

// APIKeyRepository resolves bearer tokens to users
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashKey returns the stored form of an API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Create stores a key for a user
func (r *APIKeyRepository) Create(ctx context.Context, key, userID, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, user_id, created_at, description) VALUES (?, ?, ?, ?)`,
		HashKey(key), userID, time.Now().UTC(), description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// UserIDForKey returns the user owning a key and records its use
func (r *APIKeyRepository) UserIDForKey(ctx context.Context, key string) (string, error) {
	hash := HashKey(key)
	var userID string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	_, _ = r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash)
	return userID, nil
}
