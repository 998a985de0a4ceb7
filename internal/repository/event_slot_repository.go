package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
)

// EventSlotRepository persists event placements.
type EventSlotRepository struct {
	db *sqlx.DB
}

// NewEventSlotRepository constructs an event slot repository.
func NewEventSlotRepository(db *sqlx.DB) *EventSlotRepository {
	return &EventSlotRepository{db: db}
}

func (r *EventSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventSlotColumns = `id, camp_id, event_session_id, event_location_id, event_id, starts_at, ends_at, autoscheduled, created_at`

// ListByCamp returns every placement of a camp ordered by start.
func (r *EventSlotRepository) ListByCamp(ctx context.Context, campID string) ([]models.EventSlot, error) {
	query := `SELECT ` + eventSlotColumns + ` FROM event_slots WHERE camp_id = $1 ORDER BY starts_at ASC, event_location_id ASC`
	var slots []models.EventSlot
	if err := r.db.SelectContext(ctx, &slots, query, campID); err != nil {
		return nil, fmt.Errorf("list event slots: %w", err)
	}
	return slots, nil
}

// DeleteAutoscheduled removes every autoscheduled placement of a camp and reports how many
// rows were deleted. Manual placements are kept.
func (r *EventSlotRepository) DeleteAutoscheduled(ctx context.Context, exec sqlx.ExtContext, campID string) (int64, error) {
	const query = `DELETE FROM event_slots WHERE camp_id = $1 AND autoscheduled = TRUE`
	res, err := r.exec(exec).ExecContext(ctx, query, campID)
	if err != nil {
		return 0, fmt.Errorf("delete autoscheduled event slots: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted event slots: %w", err)
	}
	return deleted, nil
}

// Create inserts a placement, assigning an id and timestamp when missing.
func (r *EventSlotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.EventSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO event_slots (id, camp_id, event_session_id, event_location_id, event_id, starts_at, ends_at, autoscheduled, created_at)
VALUES (:id, :camp_id, :event_session_id, :event_location_id, :event_id, :starts_at, :ends_at, :autoscheduled, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("create event slot: %w", err)
	}
	return nil
}
