package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/worksreg/internal/repository"
)

// Service persists workflow notifications and fans them out.
type Service struct {
	repo        Repository
	broadcaster Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new notification service. A nil broadcaster disables
// real-time push; notifications are still persisted.
func NewService(repo Repository, broadcaster Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, broadcaster: broadcaster, logger: logger, now: time.Now}
}

// Dispatch persists a notification for the event and pushes it to listeners.
// Push failures are logged and never returned.
func (s *Service) Dispatch(ctx context.Context, ev Event) (*Notification, error) {
	if !ev.Type.Valid() || ev.ProjectID == "" {
		return nil, ErrInvalidInput
	}
	n := &Notification{
		ID:           uuid.New().String(),
		Type:         ev.Type,
		Message:      Message(ev),
		ProjectID:    ev.ProjectID,
		ProjectKind:  ev.ProjectKind,
		Status:       StatusPending,
		Recipient:    ev.Recipient,
		RecipientAll: ev.Recipient == "",
		Note:         ev.Note,
		CreatedAt:    s.now().UTC(),
	}
	if ev.Informational {
		at := n.CreatedAt
		n.Status = StatusProcessed
		n.ProcessedAt = &at
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	s.Announce(ctx, "notification."+string(n.Type), n)
	return n, nil
}

// Announce broadcasts an informational event without persisting anything.
func (s *Service) Announce(ctx context.Context, event string, payload any) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(ctx, event, payload); err != nil {
		s.logger.Warn("real-time push failed", "event", event, "error", err)
	}
}

// ResolvePending marks the pending review requests of a project as processed.
func (s *Service) ResolvePending(ctx context.Context, projectID string) (int, error) {
	count, err := s.repo.MarkProjectProcessed(ctx, projectID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("resolving notifications for %s: %w", projectID, err)
	}
	return count, nil
}

// MarkProcessed flips a single notification to processed.
func (s *Service) MarkProcessed(ctx context.Context, id string) error {
	if err := s.repo.MarkProcessed(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("marking notification processed: %w", err)
	}
	return nil
}

// ListForRecipient lists notifications addressed to a user. Approvers also see
// notifications addressed to every approver.
func (s *Service) ListForRecipient(ctx context.Context, recipient string, approver bool, opts ListOptions) ([]Notification, error) {
	opts.Recipient = recipient
	opts.IncludeAll = approver
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	return s.repo.List(ctx, opts)
}

// Message renders the human-readable text of an event.
func Message(ev Event) string {
	name := fmt.Sprintf("%q", ev.ProjectName)
	actor := ev.ActorName
	if actor == "" {
		actor = "someone"
	}
	switch ev.Type {
	case TypeNew:
		return fmt.Sprintf("New %s project %s submitted by %s awaits approval", ev.ProjectKind, name, actor)
	case TypeEdit:
		return fmt.Sprintf("%s requested changes to project %s", actor, name)
	case TypeDelete:
		return fmt.Sprintf("%s requested deletion of project %s", actor, name)
	case TypeNewApproved:
		return fmt.Sprintf("Project %s was approved by %s", name, actor)
	case TypeEditApproved:
		return fmt.Sprintf("Changes to project %s were approved by %s", name, actor)
	case TypeDeleteApproved:
		return fmt.Sprintf("Deletion of project %s was approved by %s", name, actor)
	case TypeNewRejected:
		return fmt.Sprintf("Project %s was rejected by %s", name, actor)
	case TypeEditRejected:
		return fmt.Sprintf("Changes to project %s were rejected by %s", name, actor)
	case TypeDeleteRejected:
		return fmt.Sprintf("Deletion of project %s was rejected by %s", name, actor)
	}
	return fmt.Sprintf("Project %s changed", name)
}
