package mcp

import (
	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
)

// Dates travel as YYYY-MM-DD strings.

type CreateProjectParams struct {
	Kind           string  `json:"kind" jsonschema:"category or minor_repair"`
	Name           string  `json:"name"`
	AllocationUnit string  `json:"allocation_unit" jsonschema:"allocation unit id or name"`
	AllocationWave string  `json:"allocation_wave,omitempty" jsonschema:"allocation wave id or name; category projects only"`
	FinancialYear  int     `json:"financial_year" jsonschema:"starting calendar year of the financial year"`
	Location       string  `json:"location,omitempty"`
	Scale          string  `json:"scale,omitempty"`
	Remarks        string  `json:"remarks,omitempty"`
	EstimatedCost  float64 `json:"estimated_cost,omitempty"`
	StartDate      string  `json:"start_date,omitempty"`
	CompletionDate string  `json:"completion_date,omitempty"`
	IncidentDate   string  `json:"incident_date,omitempty" jsonschema:"required for minor_repair"`
	Supervisor     string  `json:"supervisor,omitempty"`
	Estimator      string  `json:"estimator,omitempty"`
	Approver       string  `json:"approver,omitempty" jsonschema:"designated approver id or username"`
	EnteredBy      string  `json:"entered_by,omitempty"`
}

// PatchParams holds the fields an update changes; omitted fields stay as they are.
type PatchParams struct {
	Name           *string  `json:"name,omitempty"`
	AllocationUnit *string  `json:"allocation_unit,omitempty"`
	AllocationWave *string  `json:"allocation_wave,omitempty"`
	FinancialYear  *int     `json:"financial_year,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Scale          *string  `json:"scale,omitempty"`
	Remarks        *string  `json:"remarks,omitempty"`
	EstimatedCost  *float64 `json:"estimated_cost,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	CompletionDate *string  `json:"completion_date,omitempty"`
	IncidentDate   *string  `json:"incident_date,omitempty"`
	Supervisor     *string  `json:"supervisor,omitempty"`
	Estimator      *string  `json:"estimator,omitempty"`
}

type UpdateProjectParams struct {
	ID              string      `json:"id"`
	Changes         PatchParams `json:"changes"`
	Status          *string     `json:"status,omitempty" jsonschema:"administrators only: Pending, Approved, Allocated or Completed"`
	Approver        *string     `json:"approver,omitempty"`
	ExpectedVersion *int64      `json:"expected_version,omitempty"`
}

type DeleteProjectParams struct {
	ID              string  `json:"id"`
	Approver        *string `json:"approver,omitempty"`
	ExpectedVersion *int64  `json:"expected_version,omitempty"`
}

type ReviewProjectParams struct {
	ID              string `json:"id"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type RejectProjectParams struct {
	ID              string `json:"id"`
	Reason          string `json:"reason"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type RejectedIDParams struct {
	RejectedID string `json:"rejected_id"`
}

type GetProjectParams struct {
	ID string `json:"id"`
}

type ListProjectsParams struct {
	Kind          string `json:"kind,omitempty"`
	Status        string `json:"status,omitempty"`
	Unit          string `json:"unit,omitempty"`
	FinancialYear int    `json:"financial_year,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}

type ListRejectedParams struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type PreviewCodeParams struct {
	Kind          string `json:"kind"`
	FinancialYear int    `json:"financial_year"`
	Unit          string `json:"unit"`
	Wave          string `json:"wave,omitempty"`
}

type StandardizeCodesParams struct {
	Unit string `json:"unit,omitempty" jsonschema:"unit to standardize; omit for every unit"`
	Wave string `json:"wave,omitempty"`
}

type RenumberSerialsParams struct {
	Kind string `json:"kind"`
}

type ListNotificationsParams struct {
	Status    string `json:"status,omitempty" jsonschema:"pending or processed"`
	ProjectID string `json:"project_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type MarkNotificationParams struct {
	ID string `json:"id"`
}

type ListProjectsResponse struct {
	Projects []project.Record `json:"projects"`
}

type ListRejectedResponse struct {
	Rejected []project.RejectedRecord `json:"rejected"`
}

type PreviewCodeResponse struct {
	Code string `json:"code"`
}

type StandardizeCodesResponse struct {
	Results []code.StandardizeResult `json:"results"`
}

type RenumberSerialsResponse struct {
	Kind       string `json:"kind"`
	Renumbered int    `json:"renumbered"`
}

type ListNotificationsResponse struct {
	Notifications []notification.Notification `json:"notifications"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
