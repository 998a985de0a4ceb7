package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
)

// EventTypeRepository reads event types.
type EventTypeRepository struct {
	db *sqlx.DB
}

// NewEventTypeRepository constructs an event type repository.
func NewEventTypeRepository(db *sqlx.DB) *EventTypeRepository {
	return &EventTypeRepository{db: db}
}

// ListAutoschedulable returns the event types the autoscheduler may place, ordered by id.
func (r *EventTypeRepository) ListAutoschedulable(ctx context.Context) ([]models.EventType, error) {
	const query = `SELECT id, name, support_autoscheduling, event_duration_minutes
FROM event_types WHERE support_autoscheduling = TRUE ORDER BY id ASC`
	var types []models.EventType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list autoschedulable event types: %w", err)
	}
	return types, nil
}
