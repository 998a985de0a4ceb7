package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
)

// EventLocationRepository reads venues and their mutual conflicts.
type EventLocationRepository struct {
	db *sqlx.DB
}

// NewEventLocationRepository constructs an event location repository.
func NewEventLocationRepository(db *sqlx.DB) *EventLocationRepository {
	return &EventLocationRepository{db: db}
}

// ListConflicts returns the location conflict pairs of a camp as stored.
func (r *EventLocationRepository) ListConflicts(ctx context.Context, campID string) ([]models.LocationConflict, error) {
	const query = `SELECT c.location_id, c.conflict_location_id
FROM event_location_conflicts c
JOIN event_locations l ON l.id = c.location_id
WHERE l.camp_id = $1`
	var conflicts []models.LocationConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, campID); err != nil {
		return nil, fmt.Errorf("list event location conflicts: %w", err)
	}
	return conflicts, nil
}
