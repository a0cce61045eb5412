package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/user"
	"github.com/rpggio/worksreg/internal/repository"
)

// authorizeReview returns the pending action the actor may act on. Only
// approval-rights holders may review, and a designated approver binds
// everyone but administrators.
func authorizeReview(actor *user.User, rec *Record) (PendingAction, error) {
	if actor == nil || !actor.Can(user.CapApprove) {
		return PendingAction{}, ErrForbidden
	}
	action, ok := rec.PendingAction()
	if !ok {
		return PendingAction{}, ErrNoPendingAction
	}
	if !actor.IsAdmin() && action.Approver != "" && action.Approver != actor.ID {
		return PendingAction{}, ErrForbidden
	}
	return action, nil
}

// Approve resolves the record's pending action in the requester's favour.
func (s *Service) Approve(ctx context.Context, actor *user.User, id string, expectedVersion *int64) (*Result, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(rec, expectedVersion); err != nil {
		return nil, err
	}
	action, err := authorizeReview(actor, rec)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	switch action.Type {
	case ActionEdit:
		e, _ := rec.PendingEdit()
		reduced, changes := e.Patch.Diff(rec)
		reduced.Apply(rec)
		if err := s.checkEdited(ctx, rec); err != nil {
			return nil, err
		}
		rec.Review = NoReview{}
		if rec.Status == StatusPending {
			rec.Status = StatusApproved
			rec.ApprovedBy = actor.ID
		}
		rec.ModifiedAt = now
		rec.appendHistory(actionEditApproved, actorOf(actor), now, summarize(changes))
		if err := s.save(ctx, rec); err != nil {
			return nil, err
		}
		s.resolveNotifications(ctx, rec.ID)
		s.notify(ctx, notification.TypeEditApproved, rec, actor, action.RequestedBy, "")
		return &Result{Record: rec, Outcome: OutcomeApproved, Changes: changes}, nil

	case ActionCreate:
		rec.Status = StatusApproved
		rec.ApprovedBy = actor.ID
		rec.ModifiedAt = now
		rec.appendHistory(actionApproved, actorOf(actor), now, "")
		if err := s.save(ctx, rec); err != nil {
			return nil, err
		}
		s.resolveNotifications(ctx, rec.ID)
		s.notify(ctx, notification.TypeNewApproved, rec, actor, action.RequestedBy, "")
		return &Result{Record: rec, Outcome: OutcomeApproved}, nil

	case ActionDelete:
		if err := s.remove(ctx, rec); err != nil {
			return nil, err
		}
		s.renumber(ctx, rec)
		s.resolveNotifications(ctx, rec.ID)
		note := fmt.Sprintf("%s %s (%s) deleted on approval by %s at %s",
			rec.Kind, rec.ProjectCode, rec.Name, actor.Name(), now.Format(time.RFC3339))
		s.notify(ctx, notification.TypeDeleteApproved, rec, actor, action.RequestedBy, note)
		s.logger.Info("project deleted on approval", "project_id", rec.ID, "kind", rec.Kind, "actor", actor.ID)
		return &Result{Outcome: OutcomeDeleted}, nil
	}
	return nil, ErrNoPendingAction
}

// Reject resolves the record's pending action against the requester. Rejecting
// a creation moves the record into the rejected snapshots.
func (s *Service) Reject(ctx context.Context, actor *user.User, id, reason string, expectedVersion *int64) (*Result, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(rec, expectedVersion); err != nil {
		return nil, err
	}
	action, err := authorizeReview(actor, rec)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	switch action.Type {
	case ActionEdit:
		rec.Review = NoReview{}
		rec.appendHistory(actionEditRejected, actorOf(actor), now, reason)
		if err := s.save(ctx, rec); err != nil {
			return nil, err
		}
		s.resolveNotifications(ctx, rec.ID)
		s.notify(ctx, notification.TypeEditRejected, rec, actor, action.RequestedBy, reason)
		return &Result{Record: rec, Outcome: OutcomeRejected}, nil

	case ActionCreate:
		snapshot := *rec
		snapshot.History = append([]HistoryEntry(nil), rec.History...)
		snapshot.appendHistory(actionRejected, actorOf(actor), now, reason)
		rej := &RejectedRecord{
			ID:                uuid.NewString(),
			OriginalProjectID: rec.ID,
			Kind:              rec.Kind,
			Name:              rec.Name,
			Snapshot:          snapshot,
			RejectionReason:   reason,
			RejectedBy:        actor.ID,
			RequestedBy:       action.RequestedBy,
			ActionType:        string(ActionCreate),
			RejectedAt:        now,
		}
		if err := s.rejected.Reject(ctx, rej, rec.Version); err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return nil, ErrConflict
			case errors.Is(err, repository.ErrNotFound):
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("rejecting project: %w", err)
		}
		s.renumber(ctx, rec)
		s.resolveNotifications(ctx, rec.ID)
		s.notify(ctx, notification.TypeNewRejected, rec, actor, action.RequestedBy, reason)
		return &Result{Outcome: OutcomeRejected}, nil

	case ActionDelete:
		rec.Review = NoReview{}
		rec.appendHistory(actionDeleteRejected, actorOf(actor), now, reason)
		if err := s.save(ctx, rec); err != nil {
			return nil, err
		}
		s.resolveNotifications(ctx, rec.ID)
		s.notify(ctx, notification.TypeDeleteRejected, rec, actor, action.RequestedBy, reason)
		return &Result{Record: rec, Outcome: OutcomeRejected}, nil
	}
	return nil, ErrNoPendingAction
}

// Restore recreates an approved record from a rejected creation snapshot with
// a new id, serial and code, and removes the snapshot.
func (s *Service) Restore(ctx context.Context, actor *user.User, rejectedID string) (*Result, error) {
	if actor == nil || !actor.Can(user.CapApprove) {
		return nil, ErrForbidden
	}
	rej, err := s.GetRejected(ctx, rejectedID)
	if err != nil {
		return nil, err
	}

	snap := rej.Snapshot
	now := s.now().UTC()
	rec := &Record{
		ID:             uuid.NewString(),
		Kind:           rej.Kind,
		Name:           snap.Name,
		AllocationUnit: snap.AllocationUnit,
		AllocationWave: snap.AllocationWave,
		FinancialYear:  snap.FinancialYear,
		Location:       snap.Location,
		Scale:          snap.Scale,
		Remarks:        snap.Remarks,
		EstimatedCost:  snap.EstimatedCost,
		StartDate:      snap.StartDate,
		CompletionDate: snap.CompletionDate,
		IncidentDate:   snap.IncidentDate,
		Status:         StatusApproved,
		Review:         NoReview{},
		CreatedBy:      snap.CreatedBy,
		EnteredBy:      snap.EnteredBy,
		ApprovedBy:     actor.ID,
		Supervisor:     snap.Supervisor,
		Estimator:      snap.Estimator,
		History:        append([]HistoryEntry(nil), snap.History...),
		CreatedAt:      now,
		ModifiedAt:     now,
		Version:        1,
	}
	if err := s.guard.CheckRecord(ctx, rec); err != nil {
		return nil, err
	}
	rec.appendHistory(actionRestored, actorOf(actor), now, "restored from rejection "+rej.ID)

	if err := s.rejected.Restore(ctx, rec, rej.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRejectedNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, duplicateError(rec.Name, rec.FinancialYear)
		}
		return nil, fmt.Errorf("restoring project: %w", err)
	}

	s.assignSequence(ctx, rec)
	s.notify(ctx, notification.TypeNewApproved, rec, actor, rec.CreatedBy, "restored from rejection")
	s.logger.Info("project restored", "project_id", rec.ID, "rejected_id", rej.ID, "actor", actor.ID)
	return &Result{Record: rec, Outcome: OutcomeRestored}, nil
}

// PurgeRejected permanently removes a rejected snapshot.
func (s *Service) PurgeRejected(ctx context.Context, actor *user.User, rejectedID string) error {
	if actor == nil || !actor.Can(user.CapApprove) {
		return ErrForbidden
	}
	if err := s.rejected.DeleteRejected(ctx, rejectedID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRejectedNotFound
		}
		return fmt.Errorf("purging rejected project: %w", err)
	}
	return nil
}
