package sequence

import (
	"context"

	"github.com/rpggio/worksreg/internal/domain/kind"
)

// Repository provides atomic access to the per-kind serial counters.
type Repository interface {
	// IncrementSerial atomically advances the kind's counter, creating it at 1 if absent.
	IncrementSerial(ctx context.Context, k kind.Kind) (int64, error)
	// Renumber assigns serial = 1-based creation position to every live record of the kind
	// and sets the counter to the record count, in one transaction. It returns the count.
	Renumber(ctx context.Context, k kind.Kind) (int, error)
	// SerialStats summarizes the live serials of a kind.
	SerialStats(ctx context.Context, k kind.Kind) (Stats, error)
}
