package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
)

// EventSessionRepository reads event sessions together with their location and type.
type EventSessionRepository struct {
	db *sqlx.DB
}

// NewEventSessionRepository constructs an event session repository.
func NewEventSessionRepository(db *sqlx.DB) *EventSessionRepository {
	return &EventSessionRepository{db: db}
}

// ListByCampAndTypes returns the sessions of a camp for the given event types. The session
// duration falls back to the event type default when unset.
func (r *EventSessionRepository) ListByCampAndTypes(ctx context.Context, campID string, eventTypeIDs []string) ([]models.EventSession, error) {
	if len(eventTypeIDs) == 0 {
		return []models.EventSession{}, nil
	}
	const query = `SELECT s.id, s.camp_id, s.event_type_id, t.name AS event_type_name, s.event_location_id,
l.name AS location_name, l.capacity AS location_capacity, s.starts_at, s.ends_at,
COALESCE(s.event_duration_minutes, t.event_duration_minutes) AS event_duration_minutes
FROM event_sessions s
JOIN event_types t ON t.id = s.event_type_id
JOIN event_locations l ON l.id = s.event_location_id
WHERE s.camp_id = $1 AND s.event_type_id = ANY($2)
ORDER BY s.starts_at ASC, s.id ASC`
	var sessions []models.EventSession
	if err := r.db.SelectContext(ctx, &sessions, query, campID, pq.Array(eventTypeIDs)); err != nil {
		return nil, fmt.Errorf("list event sessions: %w", err)
	}
	return sessions, nil
}
