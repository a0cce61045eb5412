package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/user"
)

// UpdateRequest defines project update inputs.
type UpdateRequest struct {
	ID    string
	Patch Patch
	// Status may only be set by administrators.
	Status *Status
	// Approver re-designates the reviewer of the record or of the request.
	Approver *string
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int64
}

// Update edits a record. Depending on the actor and the record's status the
// edit is applied in place or stored as an edit request awaiting review.
func (s *Service) Update(ctx context.Context, actor *user.User, req UpdateRequest) (*Result, error) {
	if actor == nil || !actor.Can(user.CapEdit) {
		return nil, ErrForbidden
	}
	if req.Status != nil && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, invalidFields("status")
	}

	rec, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(rec, req.ExpectedVersion); err != nil {
		return nil, err
	}

	patch := req.Patch
	if err := s.canonicalizePatch(ctx, &patch); err != nil {
		return nil, err
	}

	switch {
	case actor.IsAdmin():
		return s.adminEdit(ctx, actor, rec, patch, req)
	case !rec.Status.Approved() && rec.CreatedBy == actor.ID:
		return s.directEdit(ctx, actor, rec, patch, req.Approver)
	default:
		return s.requestEdit(ctx, actor, rec, patch, req.Approver)
	}
}

// directEdit lets a creator change their own unapproved submission.
func (s *Service) directEdit(ctx context.Context, actor *user.User, rec *Record, patch Patch, approverIdent *string) (*Result, error) {
	reduced, changes := patch.Diff(rec)

	var approver *user.User
	if approverIdent != nil {
		a, err := s.resolveApprover(ctx, *approverIdent)
		if err != nil {
			return nil, err
		}
		if a.ID != rec.ApprovedBy {
			approver = a
			changes = append(changes, FieldChange{Field: "approved_by", OldValue: rec.ApprovedBy, NewValue: a.ID})
		}
	}
	if len(changes) == 0 {
		return &Result{Record: rec, Outcome: OutcomeNoChange}, nil
	}

	reduced.Apply(rec)
	if approver != nil {
		rec.ApprovedBy = approver.ID
	}
	if err := s.checkEdited(ctx, rec); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.ModifiedAt = now
	rec.appendHistory(actionEdited, actorOf(actor), now, summarize(changes))
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}

	if approver != nil {
		s.notify(ctx, notification.TypeNew, rec, actor, approver.ID, "")
	}
	return &Result{Record: rec, Outcome: OutcomeUpdated, Changes: changes}, nil
}

// adminEdit applies an administrator's edit in place. Approving a pending
// record or re-designating its approver counts as an implicit approval, which
// also applies any pending edit request underneath the administrator's fields.
func (s *Service) adminEdit(ctx context.Context, actor *user.User, rec *Record, patch Patch, req UpdateRequest) (*Result, error) {
	wasPending := rec.Status == StatusPending

	var approver *user.User
	var meta []FieldChange
	if req.Approver != nil {
		a, err := s.resolveApprover(ctx, *req.Approver)
		if err != nil {
			return nil, err
		}
		if a.ID != rec.ApprovedBy {
			approver = a
			meta = append(meta, FieldChange{Field: "approved_by", OldValue: rec.ApprovedBy, NewValue: a.ID})
		}
	}
	statusChanged := req.Status != nil && *req.Status != rec.Status
	if statusChanged {
		meta = append(meta, FieldChange{Field: "status", OldValue: string(rec.Status), NewValue: string(*req.Status)})
	}
	implicitApproval := approver != nil || (wasPending && statusChanged && req.Status.Approved())

	pending, hasEdit := rec.PendingEdit()
	applyEdit := implicitApproval && hasEdit
	proposed := patch
	if applyEdit {
		proposed = pending.Patch.Merge(patch)
	}
	reduced, changes := proposed.Diff(rec)
	changes = append(changes, meta...)
	if len(changes) == 0 {
		return &Result{Record: rec, Outcome: OutcomeNoChange}, nil
	}

	requester := rec.CreatedBy
	if hasEdit && !wasPending {
		requester = pending.RequestedBy
	}

	reduced.Apply(rec)
	if statusChanged {
		rec.Status = *req.Status
	}
	switch {
	case approver != nil:
		rec.ApprovedBy = approver.ID
	case wasPending && rec.Status.Approved():
		rec.ApprovedBy = actor.ID
	}
	if applyEdit {
		rec.Review = NoReview{}
	}
	if err := s.checkEdited(ctx, rec); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.ModifiedAt = now
	action := actionEdited
	if applyEdit {
		action = actionEditApproved
	}
	rec.appendHistory(action, actorOf(actor), now, summarize(changes))
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}

	if !implicitApproval {
		s.notifyInfo(ctx, notification.TypeEdit, rec, actor, rec.ApprovedBy, "changed by administrator: "+summarize(changes))
		return &Result{Record: rec, Outcome: OutcomeUpdated, Changes: changes}, nil
	}

	if wasPending || applyEdit {
		s.resolveNotifications(ctx, rec.ID)
	}
	t := notification.TypeEditApproved
	if wasPending {
		t = notification.TypeNewApproved
	}
	s.notify(ctx, t, rec, actor, requester, "applied by administrator")
	if applyEdit && wasPending && pending.RequestedBy != requester {
		s.notify(ctx, notification.TypeEditApproved, rec, actor, pending.RequestedBy, "applied by administrator")
	}
	return &Result{Record: rec, Outcome: OutcomeUpdated, Changes: changes}, nil
}

// requestEdit stores the edit as a request for review. A second request
// merges into the one already pending.
func (s *Service) requestEdit(ctx context.Context, actor *user.User, rec *Record, patch Patch, approverIdent *string) (*Result, error) {
	var existing *EditRequested
	switch rs := rec.Review.(type) {
	case *DeleteRequested:
		return nil, ErrReviewInFlight
	case *EditRequested:
		existing = rs
	}

	if _, own := patch.Diff(rec); len(own) == 0 {
		return &Result{Record: rec, Outcome: OutcomeNoChange}, nil
	}
	proposed := patch
	if existing != nil {
		proposed = existing.Patch.Merge(patch)
	}
	reduced, changes := proposed.Diff(rec)

	approverID := ""
	if existing != nil {
		approverID = existing.Approver
	}
	if approverIdent != nil {
		a, err := s.resolveApprover(ctx, *approverIdent)
		if err != nil {
			return nil, err
		}
		approverID = a.ID
	}

	probe := *rec
	reduced.Apply(&probe)
	if err := s.checkEdited(ctx, &probe); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.Review = &EditRequested{
		Changes:     changes,
		Patch:       reduced,
		RequestedBy: actor.ID,
		RequestedAt: now,
		Approver:    approverID,
	}
	rec.appendHistory(actionEditRequested, actorOf(actor), now, summarize(changes))
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}

	action, _ := rec.PendingAction()
	s.notify(ctx, notification.TypeEdit, rec, actor, action.Approver, summarize(changes))
	return &Result{Record: rec, Outcome: OutcomeEditRequested, Changes: changes}, nil
}

// DeleteRequest defines project deletion inputs.
type DeleteRequest struct {
	ID              string
	Approver        *string
	ExpectedVersion *int64
}

// Delete removes an unapproved record owned by the actor, or files a delete
// request otherwise. Approved records are never deleted directly.
func (s *Service) Delete(ctx context.Context, actor *user.User, req DeleteRequest) (*Result, error) {
	if actor == nil || !actor.Can(user.CapDelete) {
		return nil, ErrForbidden
	}
	rec, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(rec, req.ExpectedVersion); err != nil {
		return nil, err
	}

	if !rec.Status.Approved() && (rec.CreatedBy == actor.ID || actor.IsAdmin()) {
		if err := s.remove(ctx, rec); err != nil {
			return nil, err
		}
		s.renumber(ctx, rec)
		s.resolveNotifications(ctx, rec.ID)
		s.logger.Info("project deleted", "project_id", rec.ID, "kind", rec.Kind, "actor", actor.ID)
		return &Result{Outcome: OutcomeDeleted}, nil
	}

	switch rec.Review.(type) {
	case *DeleteRequested:
		return &Result{Record: rec, Outcome: OutcomeAlreadyRequested}, nil
	case *EditRequested:
		return nil, ErrReviewInFlight
	}

	approverID := ""
	if req.Approver != nil {
		a, err := s.resolveApprover(ctx, *req.Approver)
		if err != nil {
			return nil, err
		}
		approverID = a.ID
	}

	now := s.now().UTC()
	rec.Review = &DeleteRequested{RequestedBy: actor.ID, RequestedAt: now, Approver: approverID}
	rec.appendHistory(actionDeleteRequested, actorOf(actor), now, "")
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.TypeDelete, rec, actor, firstNonEmpty(approverID, rec.ApprovedBy), "")
	return &Result{Record: rec, Outcome: OutcomeDeleteRequested}, nil
}

func (s *Service) checkEdited(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	return s.guard.CheckRecord(ctx, rec)
}

func summarize(changes []FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s: %v -> %v", c.Field, display(c.OldValue), display(c.NewValue)))
	}
	return strings.Join(parts, "; ")
}

func display(v any) any {
	if v == nil {
		return "(none)"
	}
	if s, ok := v.(string); ok && s == "" {
		return "(none)"
	}
	return v
}
