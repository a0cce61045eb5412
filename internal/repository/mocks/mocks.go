package mocks

import (
	"context"
	"time"

	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/sequence"
	"github.com/rpggio/worksreg/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, rec *project.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Update(ctx context.Context, rec *project.Record, expectedVersion int64) error {
	args := m.Called(ctx, rec, expectedVersion)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	args := m.Called(ctx, id, expectedVersion)
	return args.Error(0)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Record, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) FindDuplicate(ctx context.Context, k kind.Kind, name, unit string, year int, excludeID string) (*project.Record, error) {
	args := m.Called(ctx, k, name, unit, year, excludeID)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) AssignSequence(ctx context.Context, id string, serial *int64, projectCode string) (*int64, string, error) {
	args := m.Called(ctx, id, serial, projectCode)
	if stored, ok := args.Get(0).(*int64); ok {
		return stored, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *ProjectRepository) ListUnassigned(ctx context.Context, limit int) ([]project.Record, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]project.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// RejectedRepository is a mock for project.RejectedRepository.
type RejectedRepository struct {
	mock.Mock
}

func (m *RejectedRepository) Reject(ctx context.Context, rej *project.RejectedRecord, expectedVersion int64) error {
	args := m.Called(ctx, rej, expectedVersion)
	return args.Error(0)
}

func (m *RejectedRepository) GetRejected(ctx context.Context, id string) (*project.RejectedRecord, error) {
	args := m.Called(ctx, id)
	if rej, ok := args.Get(0).(*project.RejectedRecord); ok {
		return rej, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RejectedRepository) ListRejected(ctx context.Context, opts project.ListRejectedOptions) ([]project.RejectedRecord, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.RejectedRecord); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RejectedRepository) Restore(ctx context.Context, rec *project.Record, rejectedID string) error {
	args := m.Called(ctx, rec, rejectedID)
	return args.Error(0)
}

func (m *RejectedRepository) DeleteRejected(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// SerialAllocator is a mock for project.SerialAllocator and sweep.Serials.
type SerialAllocator struct {
	mock.Mock
}

func (m *SerialAllocator) Next(ctx context.Context, k kind.Kind) (int64, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SerialAllocator) Renumber(ctx context.Context, k kind.Kind) (int, error) {
	args := m.Called(ctx, k)
	return args.Int(0), args.Error(1)
}

func (m *SerialAllocator) IsDense(ctx context.Context, k kind.Kind) (bool, sequence.Stats, error) {
	args := m.Called(ctx, k)
	return args.Bool(0), args.Get(1).(sequence.Stats), args.Error(2)
}

// CodeGenerator is a mock for project.CodeGenerator.
type CodeGenerator struct {
	mock.Mock
}

func (m *CodeGenerator) Generate(ctx context.Context, req code.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *CodeGenerator) Preview(ctx context.Context, req code.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Notifier is a mock for project.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Dispatch(ctx context.Context, ev notification.Event) (*notification.Notification, error) {
	args := m.Called(ctx, ev)
	if n, ok := args.Get(0).(*notification.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Notifier) Announce(ctx context.Context, event string, payload any) {
	m.Called(ctx, event, payload)
}

func (m *Notifier) ResolvePending(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

// IdentityResolver is a mock for project.IdentityResolver.
type IdentityResolver struct {
	mock.Mock
}

func (m *IdentityResolver) Resolve(ctx context.Context, ident string) (*user.User, error) {
	args := m.Called(ctx, ident)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) FindByIdentifier(ctx context.Context, ident string) (*user.User, error) {
	args := m.Called(ctx, ident)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) ListApprovers(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SequenceRepository is a mock for sequence.Repository.
type SequenceRepository struct {
	mock.Mock
}

func (m *SequenceRepository) IncrementSerial(ctx context.Context, k kind.Kind) (int64, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SequenceRepository) Renumber(ctx context.Context, k kind.Kind) (int, error) {
	args := m.Called(ctx, k)
	return args.Int(0), args.Error(1)
}

func (m *SequenceRepository) SerialStats(ctx context.Context, k kind.Kind) (sequence.Stats, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(sequence.Stats), args.Error(1)
}

// CodeRepository is a mock for code.Repository.
type CodeRepository struct {
	mock.Mock
}

func (m *CodeRepository) IncrementCode(ctx context.Context, key code.Key) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CodeRepository) CurrentCode(ctx context.Context, key code.Key) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CodeRepository) StandardizeScope(ctx context.Context, scope code.Scope, planner code.Planner) (code.Plan, error) {
	args := m.Called(ctx, scope, planner)
	return args.Get(0).(code.Plan), args.Error(1)
}

func (m *CodeRepository) DistinctUnits(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// UnitDirectory is a mock for code.Directory and project.UnitDirectory.
type UnitDirectory struct {
	mock.Mock
}

func (m *UnitDirectory) FindUnit(ctx context.Context, ident string) (*code.Unit, error) {
	args := m.Called(ctx, ident)
	if u, ok := args.Get(0).(*code.Unit); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UnitDirectory) FindWave(ctx context.Context, ident string) (*code.Wave, error) {
	args := m.Called(ctx, ident)
	if w, ok := args.Get(0).(*code.Wave); ok {
		return w, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UnitDirectory) ListWaves(ctx context.Context) ([]code.Wave, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]code.Wave); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// NotificationRepository is a mock for notification.Repository.
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *NotificationRepository) List(ctx context.Context, opts notification.ListOptions) ([]notification.Notification, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]notification.Notification); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *NotificationRepository) MarkProjectProcessed(ctx context.Context, projectID string, at time.Time) (int, error) {
	args := m.Called(ctx, projectID, at)
	return args.Int(0), args.Error(1)
}

// Broadcaster is a mock for notification.Broadcaster.
type Broadcaster struct {
	mock.Mock
}

func (m *Broadcaster) Broadcast(ctx context.Context, event string, payload any) error {
	args := m.Called(ctx, event, payload)
	return args.Error(0)
}

// Backfiller is a mock for sweep.Backfiller.
type Backfiller struct {
	mock.Mock
}

func (m *Backfiller) Backfill(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}
