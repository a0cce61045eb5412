package project

import "github.com/rpggio/worksreg/internal/domain/kind"

// ListOptions provides filtering options for listing projects.
type ListOptions struct {
	Kind          kind.Kind
	Status        *Status
	Unit          string
	FinancialYear int
	Limit         int
	Offset        int
}

// ListRejectedOptions provides filtering options for rejected snapshots.
type ListRejectedOptions struct {
	Kind   kind.Kind
	Limit  int
	Offset int
}
