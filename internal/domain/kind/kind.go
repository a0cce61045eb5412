// Package kind enumerates the project record kinds shared by sequencing,
// code generation and the approval workflow.
package kind

// Kind identifies a project record kind.
type Kind string

const (
	Category    Kind = "category"
	MinorRepair Kind = "minor_repair"
)

// All lists every known kind in a stable order.
var All = []Kind{Category, MinorRepair}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == Category || k == MinorRepair
}

// UsesWave reports whether codes for this kind carry an allocation wave.
func (k Kind) UsesWave() bool {
	return k == Category
}

// Prefix is the leading segment of project codes of this kind.
func (k Kind) Prefix() string {
	switch k {
	case Category:
		return "C"
	case MinorRepair:
		return "MR"
	}
	return "X"
}
