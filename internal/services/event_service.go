package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/ender-accounts/internal/database"
	"github.com/isdelr/ender-accounts/internal/models"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *int64) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// MaxEventLimit caps GetRecentEvents.
const MaxEventLimit = 500

// EventService stores account events in the database.
type EventService struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, dialect database.Dialect) *EventService {
	return &EventService{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, userID *int64) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: s.now(),
	}

	query := s.dialect.Rebind("INSERT INTO events (id, type, level, message, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if _, err := s.db.ExecContext(ctx, query,
		event.ID, event.Type, event.Level, event.Message, event.UserID, event.CreatedAt); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > MaxEventLimit {
		limit = MaxEventLimit
	}

	rows, err := s.db.QueryContext(ctx,
		s.dialect.Rebind("SELECT id, type, level, message, user_id, created_at FROM events ORDER BY created_at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			event  models.Event
			userID sql.NullInt64
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &userID, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			event.UserID = &id
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

// PruneEvents deletes events created before the cutoff and reports how many
// were removed.
func (s *EventService) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind("DELETE FROM events WHERE created_at < ?"), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
