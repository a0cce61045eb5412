package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/project"
)

// NewTestDB creates a new in-memory SQLite database for testing. Each test
// gets its own named database.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// newTestRecord builds a minimal valid record created at the given offset from a fixed base time.
func newTestRecord(id string, k kind.Kind, name, unit string, year int, offset time.Duration) *project.Record {
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC).Add(offset)
	rec := &project.Record{
		ID:             id,
		Kind:           k,
		Name:           name,
		AllocationUnit: unit,
		FinancialYear:  year,
		Status:         project.StatusApproved,
		Review:         project.NoReview{},
		CreatedBy:      "u-1",
		CreatedAt:      created,
		ModifiedAt:     created,
		Version:        1,
	}
	if k == kind.MinorRepair {
		incident := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
		rec.IncidentDate = &incident
	}
	return rec
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"users",
		"api_keys",
		"allocation_units",
		"allocation_waves",
		"projects",
		"rejected_projects",
		"serial_counters",
		"code_counters",
		"notifications",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Migrations are idempotent.
	require.NoError(t, db.RunMigrations())
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")

	_, err = db.Exec(`INSERT INTO api_keys (key_hash, user_id) VALUES ('h', 'missing-user')`)
	require.Error(t, err, "api key for unknown user should be rejected")
}

// TestProjectsTableConstraints verifies the check constraints on projects
func TestProjectsTableConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := `INSERT INTO projects (id, kind, name, name_key, allocation_unit, financial_year, status, created_by, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, insert, "p1", "category", "Road", "road", "u1", 2025, "Pending", "u-1", now, now)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "p2", "bridge", "Road", "road", "u1", 2025, "Pending", "u-1", now, now)
	require.Error(t, err, "unknown kind should be rejected")

	_, err = db.ExecContext(ctx, insert, "p3", "category", "Other", "other", "u1", 2025, "Archived", "u-1", now, now)
	require.Error(t, err, "unknown status should be rejected")

	_, err = db.ExecContext(ctx, insert, "p4", "category", "ROAD", "road", "u1", 2025, "Pending", "u-1", now, now)
	require.Error(t, err, "identity index should reject a duplicate name key")
}
