package notification

// ListOptions provides filtering options for listing notifications.
type ListOptions struct {
	// Recipient restricts results to notifications addressed to this user.
	Recipient string
	// IncludeAll also returns notifications addressed to every approver.
	IncludeAll bool
	ProjectID  string
	Status     *Status
	Limit      int
	Offset     int
}
