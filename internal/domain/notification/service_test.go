package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/repository"
	"github.com/rpggio/worksreg/internal/repository/mocks"
)

func newEvent() notification.Event {
	return notification.Event{
		Type:        notification.TypeNew,
		ProjectID:   "p1",
		ProjectKind: kind.Category,
		ProjectName: "Line A",
		ActorName:   "Ed",
		Recipient:   "u-asha",
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	bc := &mocks.Broadcaster{}

	repo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Return(nil)
	bc.On("Broadcast", ctx, "notification.new", mock.Anything).Return(nil)

	n, err := notification.NewService(repo, bc, nil).Dispatch(ctx, newEvent())
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, notification.StatusPending, n.Status)
	assert.Equal(t, "u-asha", n.Recipient)
	assert.False(t, n.RecipientAll)
	assert.Equal(t, `New category project "Line A" submitted by Ed awaits approval`, n.Message)
	bc.AssertExpectations(t)
}

func TestDispatch_BroadcastFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	bc := &mocks.Broadcaster{}

	repo.On("Create", ctx, mock.Anything).Return(nil)
	bc.On("Broadcast", ctx, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	ev := newEvent()
	ev.Recipient = ""
	n, err := notification.NewService(repo, bc, nil).Dispatch(ctx, ev)
	require.NoError(t, err)
	assert.True(t, n.RecipientAll)
	repo.AssertExpectations(t)
}

func TestDispatch_NilBroadcaster(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("Create", ctx, mock.Anything).Return(nil)

	svc := notification.NewService(repo, nil, nil)
	_, err := svc.Dispatch(ctx, newEvent())
	require.NoError(t, err)
	svc.Announce(ctx, "project.created", map[string]string{"id": "p1"})
}

func TestDispatch_Errors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	svc := notification.NewService(repo, nil, nil)

	ev := newEvent()
	ev.Type = "archived"
	_, err := svc.Dispatch(ctx, ev)
	assert.ErrorIs(t, err, notification.ErrInvalidInput)

	ev = newEvent()
	ev.ProjectID = ""
	_, err = svc.Dispatch(ctx, ev)
	assert.ErrorIs(t, err, notification.ErrInvalidInput)

	repo.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))
	_, err = svc.Dispatch(ctx, newEvent())
	assert.Error(t, err)
}

func TestMarkProcessed(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("MarkProcessed", ctx, "n1", mock.AnythingOfType("time.Time")).Return(nil)
	repo.On("MarkProcessed", ctx, "missing", mock.Anything).Return(repository.ErrNotFound)

	svc := notification.NewService(repo, nil, nil)
	require.NoError(t, svc.MarkProcessed(ctx, "n1"))
	assert.ErrorIs(t, svc.MarkProcessed(ctx, "missing"), notification.ErrNotFound)
}

func TestListForRecipient(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("List", ctx, notification.ListOptions{Recipient: "u-asha", IncludeAll: true, Limit: 50}).
		Return([]notification.Notification{{ID: "n1"}}, nil)
	repo.On("List", ctx, notification.ListOptions{Recipient: "u-ed", Limit: 5}).
		Return([]notification.Notification{}, nil)

	svc := notification.NewService(repo, nil, nil)
	list, err := svc.ListForRecipient(ctx, "u-asha", true, notification.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.ListForRecipient(ctx, "u-ed", false, notification.ListOptions{Limit: 5, Recipient: "ignored"})
	require.NoError(t, err)
	assert.Empty(t, list)
	repo.AssertExpectations(t)
}

func TestResolvePending(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("MarkProjectProcessed", ctx, "p1", mock.MatchedBy(func(at time.Time) bool {
		return at.Location() == time.UTC
	})).Return(2, nil)

	n, err := notification.NewService(repo, nil, nil).ResolvePending(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMessage(t *testing.T) {
	ev := newEvent()
	ev.Type = notification.TypeDeleteRejected
	ev.ActorName = ""
	assert.Equal(t, `Deletion of project "Line A" was rejected by someone`, notification.Message(ev))

	for _, typ := range []notification.Type{
		notification.TypeEdit, notification.TypeDelete, notification.TypeNewApproved,
		notification.TypeEditApproved, notification.TypeDeleteApproved,
		notification.TypeNewRejected, notification.TypeEditRejected,
	} {
		ev.Type = typ
		assert.Contains(t, notification.Message(ev), `"Line A"`, typ)
	}
}

func TestDispatch_Informational(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("Create", ctx, mock.MatchedBy(func(n *notification.Notification) bool {
		return n.Status == notification.StatusProcessed && n.ProcessedAt != nil && n.ProcessedAt.Equal(n.CreatedAt)
	})).Return(nil)

	ev := newEvent()
	ev.Type = notification.TypeEdit
	ev.Informational = true
	n, err := notification.NewService(repo, nil, nil).Dispatch(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusProcessed, n.Status)
	repo.AssertExpectations(t)
}
