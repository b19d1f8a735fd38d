package models

// ActiveTimer is a running work timer. At most one exists per user at any
// instant; the active_timer_user/{userId} singleton index key acts as the
// mutex slot that enforces it.
type ActiveTimer struct {
	// ID is the unique identifier for the timer (UUID format).
	ID string `json:"id"`

	// UserID is the user the timer belongs to.
	UserID string `json:"user_id"`

	// ProjectID is the project being worked on.
	ProjectID string `json:"project_id"`

	// Description carries over to the time entry created on stop.
	Description string `json:"description"`

	// StartedAt is the Unix timestamp when the timer started.
	StartedAt int64 `json:"started_at"`
}
