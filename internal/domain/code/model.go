package code

import (
	"time"

	"github.com/rpggio/worksreg/internal/domain/kind"
)

const (
	// FallbackUnitCode replaces a missing or malformed unit short code.
	FallbackUnitCode = "XXX"
	// FallbackWaveCode replaces a missing or malformed wave short code.
	FallbackWaveCode = "00"
)

// Unit is an allocation unit as known to the directory.
type Unit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
}

// Wave is an allocation wave as known to the directory.
type Wave struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
}

// Key identifies one project code counter.
type Key struct {
	FinancialYear int       `json:"financial_year"`
	Kind          kind.Kind `json:"kind"`
	UnitCode      string    `json:"unit_code"`
	WaveCode      string    `json:"wave_code,omitempty"`
}

// Request describes a code generation.
type Request struct {
	Kind          kind.Kind
	FinancialYear int
	Unit          string
	Wave          string
}

// Scope selects the records a standardization pass rewrites.
// An empty Wave covers every wave of the unit.
type Scope struct {
	Unit string `json:"unit"`
	Wave string `json:"wave,omitempty"`
}

// ScopeEntry is a record inside a standardization scope, in creation order.
type ScopeEntry struct {
	ProjectID     string
	Kind          kind.Kind
	FinancialYear int
	Wave          string
	Code          string
	CreatedAt     time.Time
}

// Assignment is a code rewritten by standardization.
type Assignment struct {
	ProjectID string `json:"project_id"`
	OldCode   string `json:"old_code,omitempty"`
	Code      string `json:"code"`
}

// CounterValue is a counter resynchronized by standardization.
type CounterValue struct {
	Key   Key   `json:"key"`
	Value int64 `json:"value"`
}

// Plan is the complete set of writes for one scope.
type Plan struct {
	Assignments []Assignment   `json:"assignments"`
	Counters    []CounterValue `json:"counters"`
}

// Planner derives a plan from the scope's records, which arrive ordered by creation.
type Planner func(entries []ScopeEntry) (Plan, error)

// StandardizeResult reports one unit's standardization.
type StandardizeResult struct {
	Scope    Scope          `json:"scope"`
	Changed  int            `json:"changed"`
	Total    int            `json:"total"`
	Counters []CounterValue `json:"counters,omitempty"`
	Error    string         `json:"error,omitempty"`
}
