package project

import (
	"encoding/json"
	"time"

	"github.com/rpggio/worksreg/internal/domain/kind"
)

// Status is the lifecycle status of a project record.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusAllocated Status = "Allocated"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusAllocated, StatusCompleted:
		return true
	}
	return false
}

// Approved reports whether the status is past initial approval.
func (s Status) Approved() bool {
	return s != StatusPending
}

// HistoryEntry is one append-only audit line.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	ActorName string    `json:"actor_name,omitempty"`
	At        time.Time `json:"at"`
	Details   string    `json:"details,omitempty"`
}

// Record is a construction project tracked through the approval lifecycle.
type Record struct {
	ID             string         `json:"id"`
	Kind           kind.Kind      `json:"kind"`
	Name           string         `json:"name"`
	AllocationUnit string         `json:"allocation_unit"`
	AllocationWave string         `json:"allocation_wave,omitempty"`
	FinancialYear  int            `json:"financial_year"`
	Location       string         `json:"location,omitempty"`
	Scale          string         `json:"scale,omitempty"`
	Remarks        string         `json:"remarks,omitempty"`
	EstimatedCost  float64        `json:"estimated_cost"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	CompletionDate *time.Time     `json:"completion_date,omitempty"`
	IncidentDate   *time.Time     `json:"incident_date,omitempty"`
	SerialNumber   *int64         `json:"serial_number"`
	ProjectCode    string         `json:"project_code,omitempty"`
	Status         Status         `json:"status"`
	Review         ReviewState    `json:"-"`
	CreatedBy      string         `json:"created_by"`
	EnteredBy      string         `json:"entered_by,omitempty"`
	ApprovedBy     string         `json:"approved_by,omitempty"`
	Supervisor     string         `json:"supervisor,omitempty"`
	Estimator      string         `json:"estimator,omitempty"`
	History        []HistoryEntry `json:"history"`
	CreatedAt      time.Time      `json:"created_at"`
	ModifiedAt     time.Time      `json:"modified_at"`
	Version        int64          `json:"version"`
}

// MarshalJSON exposes the review state as pending_edit / pending_delete.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := struct {
		plain
		PendingEdit   *EditRequested   `json:"pending_edit"`
		PendingDelete bool             `json:"pending_delete"`
		DeleteRequest *DeleteRequested `json:"delete_request,omitempty"`
	}{plain: plain(r)}
	switch rs := r.Review.(type) {
	case *EditRequested:
		out.PendingEdit = rs
	case *DeleteRequested:
		out.PendingDelete = true
		out.DeleteRequest = rs
	}
	return json.Marshal(out)
}

func (r *Record) appendHistory(action string, actor Actor, at time.Time, details string) {
	r.History = append(r.History, HistoryEntry{
		Action:    action,
		Actor:     actor.ID,
		ActorName: actor.Name,
		At:        at,
		Details:   details,
	})
}

// Actor identifies who performed a transition in history and notifications.
type Actor struct {
	ID   string
	Name string
}

// RejectedRecord is a snapshot of a creation request that was rejected.
type RejectedRecord struct {
	ID                string    `json:"id"`
	OriginalProjectID string    `json:"original_project_id"`
	Kind              kind.Kind `json:"kind"`
	Name              string    `json:"name"`
	Snapshot          Record    `json:"snapshot"`
	RejectionReason   string    `json:"rejection_reason"`
	RejectedBy        string    `json:"rejected_by"`
	RequestedBy       string    `json:"requested_by"`
	ActionType        string    `json:"action_type"`
	RejectedAt        time.Time `json:"rejected_at"`
}

// Outcome names what an operation did.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeUpdated          Outcome = "updated"
	OutcomeNoChange         Outcome = "no_change"
	OutcomeEditRequested    Outcome = "edit_requested"
	OutcomeDeleteRequested  Outcome = "delete_requested"
	OutcomeAlreadyRequested Outcome = "already_requested"
	OutcomeDeleted          Outcome = "deleted"
	OutcomeApproved         Outcome = "approved"
	OutcomeRejected         Outcome = "rejected"
	OutcomeRestored         Outcome = "restored"
)

// Result reports the outcome of a workflow operation. Record is nil when the
// record no longer exists.
type Result struct {
	Record  *Record       `json:"record,omitempty"`
	Outcome Outcome       `json:"outcome"`
	Changes []FieldChange `json:"changes,omitempty"`
}

// History actions.
const (
	actionCreated         = "created"
	actionEdited          = "edited"
	actionEditRequested   = "edit_requested"
	actionEditApproved    = "edit_approved"
	actionEditRejected    = "edit_rejected"
	actionApproved        = "approved"
	actionRejected        = "rejected"
	actionDeleteRequested = "delete_requested"
	actionDeleteRejected  = "delete_rejected"
	actionRestored        = "restored"
)
