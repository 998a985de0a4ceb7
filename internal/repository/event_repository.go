package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
)

// EventRepository reads program events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListCandidates returns the events of the given types awaiting automatic placement. Events
// holding a manual placement are left to the content team.
func (r *EventRepository) ListCandidates(ctx context.Context, campID string, eventTypeIDs []string) ([]models.Event, error) {
	if len(eventTypeIDs) == 0 {
		return []models.Event{}, nil
	}
	const query = `SELECT e.id, e.camp_id, e.event_type_id, e.title, e.duration_minutes, e.demand, e.created_at
FROM events e
WHERE e.camp_id = $1 AND e.event_type_id = ANY($2)
AND NOT EXISTS (SELECT 1 FROM event_slots s WHERE s.event_id = e.id AND s.autoscheduled = FALSE)
ORDER BY e.id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, campID, pq.Array(eventTypeIDs)); err != nil {
		return nil, fmt.Errorf("list autoschedule candidates: %w", err)
	}
	return events, nil
}

// ListSpeakerLinks returns every event/speaker pairing of a camp.
func (r *EventRepository) ListSpeakerLinks(ctx context.Context, campID string) ([]models.EventSpeaker, error) {
	const query = `SELECT es.event_id, es.speaker_id
FROM event_speakers es
JOIN events e ON e.id = es.event_id
WHERE e.camp_id = $1
ORDER BY es.event_id ASC, es.speaker_id ASC`
	var links []models.EventSpeaker
	if err := r.db.SelectContext(ctx, &links, query, campID); err != nil {
		return nil, fmt.Errorf("list event speakers: %w", err)
	}
	return links, nil
}
