package code

import "context"

// Repository persists project code counters and scoped code rewrites.
type Repository interface {
	// IncrementCode atomically advances the counter for key, creating it at 1 if absent.
	IncrementCode(ctx context.Context, key Key) (int64, error)
	// CurrentCode returns the counter value for key, or 0 if it does not exist.
	CurrentCode(ctx context.Context, key Key) (int64, error)
	// StandardizeScope loads the scope's records in creation order, applies the
	// planner's assignments and counter values in one transaction and returns the plan.
	StandardizeScope(ctx context.Context, scope Scope, planner Planner) (Plan, error)
	// DistinctUnits lists the allocation units referenced by live records.
	DistinctUnits(ctx context.Context) ([]string, error)
}

// Directory resolves allocation units and waves by id or name.
// Lookups return repository.ErrNotFound when nothing matches.
type Directory interface {
	FindUnit(ctx context.Context, ident string) (*Unit, error)
	FindWave(ctx context.Context, ident string) (*Wave, error)
	ListWaves(ctx context.Context) ([]Wave, error)
}
