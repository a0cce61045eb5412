package notification

import (
	"time"

	"github.com/rpggio/worksreg/internal/domain/kind"
)

// Type represents the kind of workflow transition a notification reports.
type Type string

const (
	TypeNew            Type = "new"
	TypeEdit           Type = "edit"
	TypeDelete         Type = "delete"
	TypeNewApproved    Type = "new_approved"
	TypeEditApproved   Type = "edit_approved"
	TypeDeleteApproved Type = "delete_approved"
	TypeNewRejected    Type = "new_rejected"
	TypeEditRejected   Type = "edit_rejected"
	TypeDeleteRejected Type = "delete_rejected"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeNew, TypeEdit, TypeDelete,
		TypeNewApproved, TypeEditApproved, TypeDeleteApproved,
		TypeNewRejected, TypeEditRejected, TypeDeleteRejected:
		return true
	}
	return false
}

// Status is the processing state of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
)

// Notification is a durable record of a workflow transition addressed to a
// user or to every approver.
type Notification struct {
	ID           string     `json:"id"`
	Type         Type       `json:"type"`
	Message      string     `json:"message"`
	ProjectID    string     `json:"project_id"`
	ProjectKind  kind.Kind  `json:"project_kind"`
	Status       Status     `json:"status"`
	Recipient    string     `json:"recipient,omitempty"`
	RecipientAll bool       `json:"recipient_all"`
	Note         string     `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// Event describes a transition to notify about.
type Event struct {
	Type        Type
	ProjectID   string
	ProjectKind kind.Kind
	ProjectName string
	// ActorName is the display name of the user who caused the transition.
	ActorName string
	// Recipient is a user id; empty addresses every approver.
	Recipient string
	Note      string
	// Informational events need no action and are stored already processed.
	Informational bool
}
