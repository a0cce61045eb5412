package project

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReviewKind tags the review state variant for storage.
type ReviewKind string

const (
	ReviewNone   ReviewKind = "none"
	ReviewEdit   ReviewKind = "edit"
	ReviewDelete ReviewKind = "delete"
)

// ReviewState is the in-flight request overlaying a record. It is one of
// NoReview, *EditRequested or *DeleteRequested; a nil value means NoReview.
type ReviewState interface {
	reviewKind() ReviewKind
}

// NoReview marks a record with nothing awaiting review.
type NoReview struct{}

// EditRequested holds a proposed change set awaiting approval.
type EditRequested struct {
	Changes     []FieldChange `json:"changes"`
	Patch       Patch         `json:"patch"`
	RequestedBy string        `json:"requested_by"`
	RequestedAt time.Time     `json:"requested_at"`
	// Approver is the user designated to review this request, if any.
	Approver string `json:"approver,omitempty"`
}

// DeleteRequested marks a record whose deletion awaits approval.
type DeleteRequested struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
	Approver    string    `json:"approver,omitempty"`
}

func (NoReview) reviewKind() ReviewKind         { return ReviewNone }
func (*EditRequested) reviewKind() ReviewKind   { return ReviewEdit }
func (*DeleteRequested) reviewKind() ReviewKind { return ReviewDelete }

// KindOf returns the tag of a review state.
func KindOf(rs ReviewState) ReviewKind {
	if rs == nil {
		return ReviewNone
	}
	return rs.reviewKind()
}

// EncodeReview serializes a review state into its tag and payload.
func EncodeReview(rs ReviewState) (ReviewKind, []byte, error) {
	k := KindOf(rs)
	if k == ReviewNone {
		return k, nil, nil
	}
	payload, err := json.Marshal(rs)
	if err != nil {
		return "", nil, fmt.Errorf("encoding review state: %w", err)
	}
	return k, payload, nil
}

// DecodeReview restores a review state from its tag and payload.
func DecodeReview(k ReviewKind, payload []byte) (ReviewState, error) {
	switch k {
	case ReviewNone, "":
		return NoReview{}, nil
	case ReviewEdit:
		var e EditRequested
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decoding edit request: %w", err)
		}
		return &e, nil
	case ReviewDelete:
		var d DeleteRequested
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("decoding delete request: %w", err)
		}
		return &d, nil
	}
	return nil, fmt.Errorf("unknown review kind %q", k)
}

// PendingEdit returns the in-flight edit request, if any.
func (r *Record) PendingEdit() (*EditRequested, bool) {
	e, ok := r.Review.(*EditRequested)
	return e, ok
}

// PendingDelete returns the in-flight delete request, if any.
func (r *Record) PendingDelete() (*DeleteRequested, bool) {
	d, ok := r.Review.(*DeleteRequested)
	return d, ok
}

// ActionType names the kind of pending action awaiting review.
type ActionType string

const (
	ActionEdit   ActionType = "edit"
	ActionCreate ActionType = "new"
	ActionDelete ActionType = "delete"
)

// PendingAction is the single action a reviewer would act on next.
type PendingAction struct {
	Type        ActionType `json:"type"`
	RequestedBy string     `json:"requested_by"`
	// Approver is the designated reviewer; empty means any approver may act.
	Approver string `json:"approver,omitempty"`
}

// PendingAction resolves what awaits review and who may act on it. An edit
// request takes priority over initial approval, which takes priority over a
// delete request.
func (r *Record) PendingAction() (PendingAction, bool) {
	if e, ok := r.PendingEdit(); ok {
		return PendingAction{Type: ActionEdit, RequestedBy: e.RequestedBy, Approver: firstNonEmpty(e.Approver, r.ApprovedBy)}, true
	}
	if r.Status == StatusPending {
		return PendingAction{Type: ActionCreate, RequestedBy: r.CreatedBy, Approver: r.ApprovedBy}, true
	}
	if d, ok := r.PendingDelete(); ok {
		return PendingAction{Type: ActionDelete, RequestedBy: d.RequestedBy, Approver: firstNonEmpty(d.Approver, r.ApprovedBy)}, true
	}
	return PendingAction{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
