package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildReferenceMatchesAndSkips(t *testing.T) {
	problem := twoStageProblem(t, 2*time.Hour, talk("e1"), talk("e2"))
	core, logs := observer.New(zapcore.WarnLevel)

	placements := []Placement{
		{ID: "p1", EventID: "e1", SessionID: "s-b", LocationID: "b", StartsAt: at(time.Hour), EndsAt: at(2 * time.Hour)},
		{ID: "p2", EventID: "e2", LocationID: "a", StartsAt: at(0)},
		{ID: "p3", EventID: "e2", LocationID: "a", StartsAt: at(15 * time.Minute)},
		{ID: "p4", EventID: "manual", LocationID: "a", StartsAt: at(0)},
	}

	schedule, gaps := problem.BuildReference(placements, zap.New(core))
	assert.Equal(t, Schedule{{Item: 0, Slot: 3}, {Item: 1, Slot: 0}}, schedule)

	require.Len(t, gaps, 2)
	assert.Equal(t, "p3", gaps[0].Placement.ID)
	assert.Equal(t, GapNoSlot, gaps[0].Reason)
	assert.Equal(t, "p4", gaps[1].Placement.ID)
	assert.Equal(t, GapUnknownEvent, gaps[1].Reason)
	assert.Equal(t, 2, logs.Len())
}

func TestBuildReferenceRequiresMatchingEventType(t *testing.T) {
	workshops := talkSession("ws", "a", 0, time.Hour, 20)
	workshops.EventTypeID = "workshop"
	catalog := Catalog{
		Sessions: []Session{workshops},
		Events:   []Event{talk("e1")},
	}
	problem := NewBuilder(DefaultConstraints(), nil).Build(catalog)

	schedule, gaps := problem.BuildReference([]Placement{{ID: "p1", EventID: "e1", LocationID: "a", StartsAt: at(0)}}, nil)
	assert.Empty(t, schedule)
	require.Len(t, gaps, 1)
	assert.Equal(t, GapNoSlot, gaps[0].Reason)
}
