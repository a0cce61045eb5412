package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/user"
	"github.com/rpggio/worksreg/internal/repository"
	"github.com/rpggio/worksreg/internal/repository/mocks"
)

var editorUser = &user.User{ID: "u-ed", Username: "ed", Role: user.RoleEditor,
	Permissions: user.Permissions{Add: true, Edit: true, Delete: true}}

func pendingRecord(id string) *project.Record {
	serial := int64(3)
	return &project.Record{
		ID:             id,
		Kind:           kind.Category,
		Name:           "Line A",
		AllocationUnit: "unit-north",
		FinancialYear:  2024,
		SerialNumber:   &serial,
		ProjectCode:    "C0024XXX003",
		Status:         project.StatusPending,
		Review:         project.NoReview{},
		CreatedBy:      editorUser.ID,
		Version:        4,
	}
}

func TestDelete_RenumberFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	records := &mocks.ProjectRepository{}
	serials := &mocks.SerialAllocator{}
	notifier := &mocks.Notifier{}

	records.On("Get", ctx, "p1").Return(pendingRecord("p1"), nil)
	records.On("Delete", ctx, "p1", int64(4)).Return(nil)
	serials.On("Renumber", ctx, kind.Category).Return(0, errors.New("database is locked"))
	notifier.On("ResolvePending", ctx, "p1").Return(1, nil)

	svc := project.NewService(project.Deps{Records: records, Serials: serials, Notifier: notifier})
	res, err := svc.Delete(ctx, editorUser, project.DeleteRequest{ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, project.OutcomeDeleted, res.Outcome)

	records.AssertExpectations(t)
	serials.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestDelete_ConcurrentModification(t *testing.T) {
	ctx := context.Background()
	records := &mocks.ProjectRepository{}
	serials := &mocks.SerialAllocator{}

	records.On("Get", ctx, "p1").Return(pendingRecord("p1"), nil)
	records.On("Delete", ctx, "p1", int64(4)).Return(repository.ErrConflict)

	svc := project.NewService(project.Deps{Records: records, Serials: serials})
	_, err := svc.Delete(ctx, editorUser, project.DeleteRequest{ID: "p1"})
	assert.ErrorIs(t, err, project.ErrConflict)
	serials.AssertNotCalled(t, "Renumber", mock.Anything, mock.Anything)
}

func TestCreate_AllocationFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	records := &mocks.ProjectRepository{}
	serials := &mocks.SerialAllocator{}
	codes := &mocks.CodeGenerator{}
	notifier := &mocks.Notifier{}

	records.On("FindDuplicate", ctx, kind.Category, "line a", "North", 2024, mock.Anything).
		Return(nil, repository.ErrNotFound)
	records.On("Create", ctx, mock.AnythingOfType("*project.Record")).Return(nil)
	serials.On("Next", ctx, kind.Category).Return(int64(0), errors.New("counter unavailable"))
	codes.On("Generate", ctx, mock.Anything).Return("", errors.New("counter unavailable"))
	notifier.On("Dispatch", ctx, mock.Anything).Return(nil, errors.New("notifications down"))

	svc := project.NewService(project.Deps{Records: records, Serials: serials, Codes: codes, Notifier: notifier})
	res, err := svc.Create(ctx, editorUser, project.CreateRequest{
		Kind:           kind.Category,
		Name:           "Line A",
		AllocationUnit: "North",
		FinancialYear:  2024,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Record.SerialNumber)
	assert.Empty(t, res.Record.ProjectCode)
	records.AssertNotCalled(t, "AssignSequence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertExpectations(t)
}

func TestCreate_StoreDuplicateRace(t *testing.T) {
	ctx := context.Background()
	records := &mocks.ProjectRepository{}

	records.On("FindDuplicate", ctx, kind.Category, "line a", "North", 2024, mock.Anything).
		Return(nil, repository.ErrNotFound)
	records.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

	svc := project.NewService(project.Deps{Records: records})
	_, err := svc.Create(ctx, editorUser, project.CreateRequest{
		Kind:           kind.Category,
		Name:           "Line A",
		AllocationUnit: "North",
		FinancialYear:  2024,
	})
	assert.ErrorIs(t, err, project.ErrDuplicateProject)
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	records := &mocks.ProjectRepository{}
	serials := &mocks.SerialAllocator{}
	codes := &mocks.CodeGenerator{}

	missing := pendingRecord("p1")
	missing.SerialNumber = nil
	missing.ProjectCode = ""
	stored := int64(7)

	records.On("ListUnassigned", ctx, 10).Return([]project.Record{*missing}, nil)
	serials.On("Next", ctx, kind.Category).Return(int64(7), nil)
	codes.On("Generate", ctx, mock.Anything).Return("C0024XXX007", nil)
	records.On("AssignSequence", ctx, "p1", &stored, "C0024XXX007").Return(&stored, "C0024XXX007", nil)

	svc := project.NewService(project.Deps{Records: records, Serials: serials, Codes: codes})
	n, err := svc.Backfill(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	records.AssertExpectations(t)
}

func TestPendingAction(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		rec    project.Record
		want   project.PendingAction
		exists bool
	}{
		{
			name:   "approved without review",
			rec:    project.Record{Status: project.StatusApproved, Review: project.NoReview{}, ApprovedBy: "u-a"},
			exists: false,
		},
		{
			name:   "pending creation",
			rec:    project.Record{Status: project.StatusPending, CreatedBy: "u-ed", ApprovedBy: "u-a"},
			want:   project.PendingAction{Type: project.ActionCreate, RequestedBy: "u-ed", Approver: "u-a"},
			exists: true,
		},
		{
			name: "edit outranks pending creation",
			rec: project.Record{Status: project.StatusPending, CreatedBy: "u-ed", ApprovedBy: "u-a",
				Review: &project.EditRequested{RequestedBy: "u-fay", RequestedAt: now, Approver: "u-b"}},
			want:   project.PendingAction{Type: project.ActionEdit, RequestedBy: "u-fay", Approver: "u-b"},
			exists: true,
		},
		{
			name: "edit falls back to record approver",
			rec: project.Record{Status: project.StatusApproved, ApprovedBy: "u-a",
				Review: &project.EditRequested{RequestedBy: "u-fay"}},
			want:   project.PendingAction{Type: project.ActionEdit, RequestedBy: "u-fay", Approver: "u-a"},
			exists: true,
		},
		{
			name: "delete request",
			rec: project.Record{Status: project.StatusAllocated, ApprovedBy: "u-a",
				Review: &project.DeleteRequested{RequestedBy: "u-ed"}},
			want:   project.PendingAction{Type: project.ActionDelete, RequestedBy: "u-ed", Approver: "u-a"},
			exists: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rec.PendingAction()
			assert.Equal(t, tt.exists, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatchDiff(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rec := &project.Record{
		Name:          "Line A",
		Location:      "X",
		EstimatedCost: 1200,
		StartDate:     &start,
	}

	sameDay := time.Date(2024, 4, 1, 17, 30, 0, 0, time.UTC)
	cost := 1200.0000000001
	reduced, changes := project.Patch{
		Name:          strPtr(" Line A "),
		EstimatedCost: &cost,
		StartDate:     &sameDay,
	}.Diff(rec)
	assert.Empty(t, changes)
	assert.True(t, reduced.IsEmpty())

	nextDay := start.AddDate(0, 0, 1)
	reduced, changes = project.Patch{
		Location:  strPtr("Y"),
		StartDate: &nextDay,
		Remarks:   strPtr(""),
	}.Diff(rec)
	require.Len(t, changes, 2)
	assert.Equal(t, project.FieldChange{Field: "location", OldValue: "X", NewValue: "Y"}, changes[0])
	assert.Equal(t, project.FieldChange{Field: "start_date", OldValue: "2024-04-01", NewValue: "2024-04-02"}, changes[1])
	assert.Nil(t, reduced.Remarks)

	reduced.Apply(rec)
	assert.Equal(t, "Y", rec.Location)
	assert.Equal(t, nextDay, *rec.StartDate)
}

func TestPatchMerge(t *testing.T) {
	first := project.Patch{Location: strPtr("Y"), Remarks: strPtr("a")}
	merged := first.Merge(project.Patch{Remarks: strPtr("b"), Scale: strPtr("large")})
	assert.Equal(t, "Y", *merged.Location)
	assert.Equal(t, "b", *merged.Remarks)
	assert.Equal(t, "large", *merged.Scale)
	assert.Equal(t, "a", *first.Remarks, "merge leaves the receiver's fields intact")
}

func TestReviewEncoding(t *testing.T) {
	kindTag, payload, err := project.EncodeReview(project.NoReview{})
	require.NoError(t, err)
	assert.Equal(t, project.ReviewNone, kindTag)
	assert.Nil(t, payload)

	in := &project.DeleteRequested{RequestedBy: "u-ed", Approver: "u-a"}
	kindTag, payload, err = project.EncodeReview(in)
	require.NoError(t, err)
	assert.Equal(t, project.ReviewDelete, kindTag)

	out, err := project.DecodeReview(kindTag, payload)
	require.NoError(t, err)
	del, ok := out.(*project.DeleteRequested)
	require.True(t, ok)
	assert.Equal(t, "u-a", del.Approver)

	_, err = project.DecodeReview("archive", nil)
	assert.Error(t, err)
}
