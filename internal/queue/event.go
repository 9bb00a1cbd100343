// Package queue defines message payloads exchanged over the message broker.
package queue

// UserDeactivatedEvent is published after an admin soft-deletes a user
// account. It carries enough information for downstream consumers to log
// or audit the deletion, including how many of the user's tasks were
// cascaded, without querying the primary database.
type UserDeactivatedEvent struct {
	UserID        uint64 `json:"user_id"`
	Email         string `json:"email"`
	DeletedBy     uint64 `json:"deleted_by"`
	CascadedTasks int64  `json:"cascaded_tasks"`
	DeletedAt     string `json:"deleted_at"`
}
