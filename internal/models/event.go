package models

import "time"

// Account event types.
const (
	EventUserRegistered = "user.registered"
	EventLoginSucceeded = "user.login.success"
	EventLoginFailed    = "user.login.fail"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
	EventRoleGranted    = "user.role.granted"
)

// Event levels.
const (
	LevelInfo = "info"
	LevelWarn = "warn"
)

// Event represents a recorded account action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "user.registered", "user.login.fail"
	Level     string    `json:"level"` // "info" or "warn"
	Message   string    `json:"message"`
	UserID    *int64    `json:"userId,omitempty"` // Nil when no account matched, e.g. unknown login
	CreatedAt time.Time `json:"createdAt"`
}
