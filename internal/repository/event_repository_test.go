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

func TestEventRepositoryListCandidatesExcludesManualPlacements(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows([]string{"id", "camp_id", "event_type_id", "title", "duration_minutes", "demand", "created_at"}).
		AddRow("event-1", "camp-1", "talk", "Soldering 101", 45, 80, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS (SELECT 1 FROM event_slots s WHERE s.event_id = e.id AND s.autoscheduled = FALSE)")).
		WithArgs("camp-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	events, err := repo.ListCandidates(context.Background(), "camp-1", []string{"talk"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Soldering 101", events[0].Title)
	assert.Equal(t, 80, events[0].Demand)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListCandidatesWithoutTypes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	events, err := repo.ListCandidates(context.Background(), "camp-1", nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListSpeakerLinks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows([]string{"event_id", "speaker_id"}).
		AddRow("event-1", "speaker-1").
		AddRow("event-1", "speaker-2")
	mock.ExpectQuery(regexp.QuoteMeta("FROM event_speakers es JOIN events e ON e.id = es.event_id WHERE e.camp_id = $1")).
		WithArgs("camp-1").
		WillReturnRows(rows)

	links, err := repo.ListSpeakerLinks(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
