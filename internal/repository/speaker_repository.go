package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
)

// SpeakerRepository reads speakers with their availability and attendance wishes.
type SpeakerRepository struct {
	db *sqlx.DB
}

// NewSpeakerRepository constructs a speaker repository.
func NewSpeakerRepository(db *sqlx.DB) *SpeakerRepository {
	return &SpeakerRepository{db: db}
}

// ListByCamp returns the speakers of a camp.
func (r *SpeakerRepository) ListByCamp(ctx context.Context, campID string) ([]models.Speaker, error) {
	const query = `SELECT id, camp_id, name FROM speakers WHERE camp_id = $1 ORDER BY id ASC`
	var speakers []models.Speaker
	if err := r.db.SelectContext(ctx, &speakers, query, campID); err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	return speakers, nil
}

// ListAvailabilities returns the positive availability windows of every speaker of a camp.
func (r *SpeakerRepository) ListAvailabilities(ctx context.Context, campID string) ([]models.SpeakerAvailability, error) {
	const query = `SELECT a.id, a.speaker_id, a.starts_at, a.ends_at, a.available
FROM speaker_availabilities a
JOIN speakers s ON s.id = a.speaker_id
WHERE s.camp_id = $1 AND a.available = TRUE
ORDER BY a.speaker_id ASC, a.starts_at ASC`
	var windows []models.SpeakerAvailability
	if err := r.db.SelectContext(ctx, &windows, query, campID); err != nil {
		return nil, fmt.Errorf("list speaker availabilities: %w", err)
	}
	return windows, nil
}

// ListEventConflicts returns the events each speaker of a camp wishes to attend.
func (r *SpeakerRepository) ListEventConflicts(ctx context.Context, campID string) ([]models.SpeakerEventConflict, error) {
	const query = `SELECT c.speaker_id, c.event_id
FROM speaker_event_conflicts c
JOIN speakers s ON s.id = c.speaker_id
WHERE s.camp_id = $1
ORDER BY c.speaker_id ASC, c.event_id ASC`
	var conflicts []models.SpeakerEventConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, campID); err != nil {
		return nil, fmt.Errorf("list speaker event conflicts: %w", err)
	}
	return conflicts, nil
}
