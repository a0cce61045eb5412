package notification

import (
	"context"
	"time"
)

// Repository provides persistence operations for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, opts ListOptions) ([]Notification, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	// MarkProjectProcessed flips every pending notification of a project and
	// returns how many changed.
	MarkProjectProcessed(ctx context.Context, projectID string, at time.Time) (int, error)
}

// Broadcaster pushes events to connected listeners.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload any) error
}
