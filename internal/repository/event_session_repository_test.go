package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeRepositoryListAutoschedulable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventTypeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "support_autoscheduling", "event_duration_minutes"}).
		AddRow("talk", "Talk", true, 60).
		AddRow("workshop", "Workshop", true, 120)
	mock.ExpectQuery(regexp.QuoteMeta("FROM event_types WHERE support_autoscheduling = TRUE")).
		WillReturnRows(rows)

	types, err := repo.ListAutoschedulable(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, 120, types[1].EventDurationMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventSessionRepositoryListByCampAndTypes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventSessionRepository(db)

	start := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "camp_id", "event_type_id", "event_type_name", "event_location_id", "location_name", "location_capacity", "starts_at", "ends_at", "event_duration_minutes"}).
		AddRow("session-1", "camp-1", "talk", "Talk", "loc-1", "Speakers Tent", 200, start, start.Add(4*time.Hour), 60)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(s.event_duration_minutes, t.event_duration_minutes) AS event_duration_minutes")).
		WithArgs("camp-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	sessions, err := repo.ListByCampAndTypes(context.Background(), "camp-1", []string{"talk"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Speakers Tent", sessions[0].LocationName)
	assert.Equal(t, 200, sessions[0].LocationCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLocationRepositoryListConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventLocationRepository(db)

	rows := sqlmock.NewRows([]string{"location_id", "conflict_location_id"}).
		AddRow("loc-1", "loc-2")
	mock.ExpectQuery(regexp.QuoteMeta("FROM event_location_conflicts c")).
		WithArgs("camp-1").
		WillReturnRows(rows)

	conflicts, err := repo.ListConflicts(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "loc-2", conflicts[0].ConflictLocationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
