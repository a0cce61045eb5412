package project

import (
	"strings"

	"github.com/rpggio/worksreg/internal/domain/kind"
)

// ValidateCreateInput validates fields required to create a record of the request's kind.
func ValidateCreateInput(req CreateRequest) error {
	var fields []string
	if !req.Kind.Valid() {
		fields = append(fields, "kind")
	}
	fields = append(fields, invalidRecordFields(req.record())...)
	if len(fields) > 0 {
		return invalidFields(fields...)
	}
	return nil
}

// validateRecord checks a record after a patch has been applied.
func validateRecord(r *Record) error {
	if fields := invalidRecordFields(r); len(fields) > 0 {
		return invalidFields(fields...)
	}
	return nil
}

func invalidRecordFields(r *Record) []string {
	var fields []string
	if strings.TrimSpace(r.Name) == "" {
		fields = append(fields, "name")
	}
	if strings.TrimSpace(r.AllocationUnit) == "" {
		fields = append(fields, "allocation_unit")
	}
	if r.FinancialYear < 1900 || r.FinancialYear > 9999 {
		fields = append(fields, "financial_year")
	}
	if r.EstimatedCost < 0 {
		fields = append(fields, "estimated_cost")
	}
	// Minor repairs are raised against a reported incident.
	if r.Kind == kind.MinorRepair && r.IncidentDate == nil {
		fields = append(fields, "incident_date")
	}
	if r.StartDate != nil && r.CompletionDate != nil && r.CompletionDate.Before(*r.StartDate) {
		fields = append(fields, "completion_date")
	}
	return fields
}

// NameKey normalizes a project name for duplicate detection.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
