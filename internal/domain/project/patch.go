package project

import (
	"math"
	"strings"
	"time"
)

// Patch is a set of proposed field values. Nil fields are left unchanged.
// Serials, codes, status, ownership and audit fields are not patchable.
type Patch struct {
	Name           *string    `json:"name,omitempty"`
	AllocationUnit *string    `json:"allocation_unit,omitempty"`
	AllocationWave *string    `json:"allocation_wave,omitempty"`
	FinancialYear  *int       `json:"financial_year,omitempty"`
	Location       *string    `json:"location,omitempty"`
	Scale          *string    `json:"scale,omitempty"`
	Remarks        *string    `json:"remarks,omitempty"`
	EstimatedCost  *float64   `json:"estimated_cost,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	IncidentDate   *time.Time `json:"incident_date,omitempty"`
	Supervisor     *string    `json:"supervisor,omitempty"`
	Estimator      *string    `json:"estimator,omitempty"`
}

// FieldChange is one field-level difference between a record and a patch.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// IsEmpty reports whether the patch proposes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Merge overlays next onto p; fields set in next win.
func (p Patch) Merge(next Patch) Patch {
	mergeField(&p.Name, next.Name)
	mergeField(&p.AllocationUnit, next.AllocationUnit)
	mergeField(&p.AllocationWave, next.AllocationWave)
	mergeField(&p.FinancialYear, next.FinancialYear)
	mergeField(&p.Location, next.Location)
	mergeField(&p.Scale, next.Scale)
	mergeField(&p.Remarks, next.Remarks)
	mergeField(&p.EstimatedCost, next.EstimatedCost)
	mergeField(&p.StartDate, next.StartDate)
	mergeField(&p.CompletionDate, next.CompletionDate)
	mergeField(&p.IncidentDate, next.IncidentDate)
	mergeField(&p.Supervisor, next.Supervisor)
	mergeField(&p.Estimator, next.Estimator)
	return p
}

func mergeField[T any](dst **T, next *T) {
	if next != nil {
		*dst = next
	}
}

// Diff compares the patch with the record and returns the reduced patch holding
// only fields whose values actually differ, plus the change list. Strings are
// compared trimmed, numbers numerically and dates by calendar day.
func (p Patch) Diff(r *Record) (Patch, []FieldChange) {
	var out Patch
	var changes []FieldChange
	changes = diffString(changes, "name", p.Name, r.Name, &out.Name)
	changes = diffString(changes, "allocation_unit", p.AllocationUnit, r.AllocationUnit, &out.AllocationUnit)
	changes = diffString(changes, "allocation_wave", p.AllocationWave, r.AllocationWave, &out.AllocationWave)
	changes = diffValue(changes, "financial_year", p.FinancialYear, r.FinancialYear, func(a, b int) bool { return a == b }, &out.FinancialYear)
	changes = diffString(changes, "location", p.Location, r.Location, &out.Location)
	changes = diffString(changes, "scale", p.Scale, r.Scale, &out.Scale)
	changes = diffString(changes, "remarks", p.Remarks, r.Remarks, &out.Remarks)
	changes = diffValue(changes, "estimated_cost", p.EstimatedCost, r.EstimatedCost, sameNumber, &out.EstimatedCost)
	changes = diffDate(changes, "start_date", p.StartDate, r.StartDate, &out.StartDate)
	changes = diffDate(changes, "completion_date", p.CompletionDate, r.CompletionDate, &out.CompletionDate)
	changes = diffDate(changes, "incident_date", p.IncidentDate, r.IncidentDate, &out.IncidentDate)
	changes = diffString(changes, "supervisor", p.Supervisor, r.Supervisor, &out.Supervisor)
	changes = diffString(changes, "estimator", p.Estimator, r.Estimator, &out.Estimator)
	return out, changes
}

// Apply writes every set field of the patch onto the record.
func (p Patch) Apply(r *Record) {
	applyString(&r.Name, p.Name)
	applyString(&r.AllocationUnit, p.AllocationUnit)
	applyString(&r.AllocationWave, p.AllocationWave)
	if p.FinancialYear != nil {
		r.FinancialYear = *p.FinancialYear
	}
	applyString(&r.Location, p.Location)
	applyString(&r.Scale, p.Scale)
	applyString(&r.Remarks, p.Remarks)
	if p.EstimatedCost != nil {
		r.EstimatedCost = *p.EstimatedCost
	}
	applyDate(&r.StartDate, p.StartDate)
	applyDate(&r.CompletionDate, p.CompletionDate)
	applyDate(&r.IncidentDate, p.IncidentDate)
	applyString(&r.Supervisor, p.Supervisor)
	applyString(&r.Estimator, p.Estimator)
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func applyDate(dst **time.Time, v *time.Time) {
	if v != nil {
		d := v.UTC()
		*dst = &d
	}
}

func diffString(changes []FieldChange, field string, proposed *string, current string, dst **string) []FieldChange {
	if proposed == nil {
		return changes
	}
	next := strings.TrimSpace(*proposed)
	if next == strings.TrimSpace(current) {
		return changes
	}
	*dst = &next
	return append(changes, FieldChange{Field: field, OldValue: current, NewValue: next})
}

func diffValue[T any](changes []FieldChange, field string, proposed *T, current T, equal func(a, b T) bool, dst **T) []FieldChange {
	if proposed == nil || equal(*proposed, current) {
		return changes
	}
	*dst = proposed
	return append(changes, FieldChange{Field: field, OldValue: current, NewValue: *proposed})
}

func diffDate(changes []FieldChange, field string, proposed *time.Time, current *time.Time, dst **time.Time) []FieldChange {
	if proposed == nil {
		return changes
	}
	if current != nil && sameDay(*proposed, *current) {
		return changes
	}
	*dst = proposed
	var old any
	if current != nil {
		old = current.UTC().Format(time.DateOnly)
	}
	return append(changes, FieldChange{Field: field, OldValue: old, NewValue: proposed.UTC().Format(time.DateOnly)})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func sameNumber(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
