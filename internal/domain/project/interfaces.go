package project

import (
	"context"

	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/user"
)

// Repository provides persistence for project records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// Update saves rec if its stored version equals expectedVersion and bumps the version.
	Update(ctx context.Context, rec *Record, expectedVersion int64) error
	Delete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	// FindDuplicate returns a record matching kind, normalized name, unit and year
	// other than excludeID, or repository.ErrNotFound.
	FindDuplicate(ctx context.Context, k kind.Kind, name, unit string, year int, excludeID string) (*Record, error)
	// AssignSequence fills the serial and code columns without bumping the version.
	// A serial is only written when the record has none.
	AssignSequence(ctx context.Context, id string, serial *int64, projectCode string) (*int64, string, error)
	// ListUnassigned returns records missing a serial or a code.
	ListUnassigned(ctx context.Context, limit int) ([]Record, error)
}

// RejectedRepository persists rejected creation snapshots.
type RejectedRepository interface {
	// Reject inserts the snapshot and deletes the live record in one transaction.
	Reject(ctx context.Context, rej *RejectedRecord, expectedVersion int64) error
	GetRejected(ctx context.Context, id string) (*RejectedRecord, error)
	ListRejected(ctx context.Context, opts ListRejectedOptions) ([]RejectedRecord, error)
	// Restore inserts rec and deletes the snapshot in one transaction.
	Restore(ctx context.Context, rec *Record, rejectedID string) error
	DeleteRejected(ctx context.Context, id string) error
}

// SerialAllocator hands out and repairs dense per-kind serials.
type SerialAllocator interface {
	Next(ctx context.Context, k kind.Kind) (int64, error)
	Renumber(ctx context.Context, k kind.Kind) (int, error)
}

// CodeGenerator allocates formatted project codes.
type CodeGenerator interface {
	Generate(ctx context.Context, req code.Request) (string, error)
	Preview(ctx context.Context, req code.Request) (string, error)
}

// Notifier records and pushes workflow notifications.
type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) (*notification.Notification, error)
	Announce(ctx context.Context, event string, payload any)
	ResolvePending(ctx context.Context, projectID string) (int, error)
}

// IdentityResolver maps a free-form identifier to a canonical user.
type IdentityResolver interface {
	Resolve(ctx context.Context, ident string) (*user.User, error)
}

// UnitDirectory resolves allocation units and waves to canonical ids.
type UnitDirectory interface {
	FindUnit(ctx context.Context, ident string) (*code.Unit, error)
	FindWave(ctx context.Context, ident string) (*code.Wave, error)
}
