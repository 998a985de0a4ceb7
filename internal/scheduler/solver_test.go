package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStageProblem(t *testing.T, length time.Duration, events ...Event) *Problem {
	t.Helper()
	catalog := Catalog{
		CampID:     "camp-1",
		EventTypes: []string{"talk"},
		Sessions: []Session{
			talkSession("s-a", "a", 0, length, 100),
			talkSession("s-b", "b", 0, length, 100),
		},
		Events:   events,
		Speakers: map[string]Speaker{"alice": availableSpeaker("alice", "Alice")},
	}
	return NewBuilder(DefaultConstraints(), nil).Build(catalog)
}

func TestSolverSchedulesEveryItemOnDistinctSlots(t *testing.T) {
	problem := twoStageProblem(t, 4*time.Hour,
		talk("e1"), talk("e2"), talk("e3"), talk("e4"), talk("e5"), talk("e6"))
	require.Len(t, problem.Slots, 8)

	schedule, stats, err := NewSolver(nil, SolverOptions{}, nil).Solve(context.Background(), problem, nil)
	require.NoError(t, err)
	require.Len(t, schedule, 6)
	assert.Equal(t, ObjectiveCapacityDemand, stats.Objective)
	assert.True(t, stats.Optimal)

	used := make(map[int]bool)
	for _, a := range schedule {
		assert.False(t, used[a.Slot], "slot %d used twice", a.Slot)
		used[a.Slot] = true
	}
	assert.True(t, problem.IsValid(schedule))
}

func TestSolverKeepsSharedSpeakerApart(t *testing.T) {
	problem := twoStageProblem(t, 2*time.Hour, talk("e1", "alice"), talk("e2", "alice"))

	schedule, _, err := NewSolver(nil, SolverOptions{}, nil).Solve(context.Background(), problem, nil)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.False(t, problem.Slots[schedule[0].Slot].Overlaps(problem.Slots[schedule[1].Slot]))
	assert.True(t, problem.IsValid(schedule))
}

func TestSolverMinimisesCapacityDifference(t *testing.T) {
	catalog := Catalog{
		Sessions: []Session{
			talkSession("small", "a", 0, time.Hour, 50),
			talkSession("big", "b", 0, time.Hour, 200),
		},
		Events: []Event{{ID: "crowd", EventTypeID: "talk", DurationMinutes: 60, Demand: 190}},
	}
	problem := NewBuilder(DefaultConstraints(), nil).Build(catalog)

	schedule, stats, err := NewSolver(nil, SolverOptions{}, nil).Solve(context.Background(), problem, nil)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.Equal(t, "b", problem.Slots[schedule[0].Slot].LocationID)
	assert.Equal(t, 10, stats.Cost)
}

func TestSolverPreservesReference(t *testing.T) {
	problem := twoStageProblem(t, 2*time.Hour, talk("e1"), talk("e2"))
	reference := Schedule{{Item: 0, Slot: 3}, {Item: 1, Slot: 0}}

	schedule, stats, err := NewSolver(nil, SolverOptions{}, nil).Solve(context.Background(), problem, reference)
	require.NoError(t, err)
	assert.Equal(t, ObjectiveChanges, stats.Objective)
	assert.Equal(t, reference, schedule)
	assert.Equal(t, 0, stats.Cost)
	assert.True(t, problem.Diff(reference, schedule).Empty())
}

func TestSolverReportsInfeasible(t *testing.T) {
	catalog := Catalog{
		Sessions: []Session{talkSession("s", "a", 0, 2*time.Hour, 100)},
		Events:   []Event{talk("e1"), talk("e2"), talk("e3")},
	}
	problem := NewBuilder(DefaultConstraints(), nil).Build(catalog)

	_, _, err := NewSolver(nil, SolverOptions{}, nil).Solve(context.Background(), problem, nil)
	assert.True(t, errors.Is(err, ErrNoFeasibleSchedule))
}

func TestSolverReportsItemWithoutSlots(t *testing.T) {
	catalog := Catalog{
		Sessions: []Session{talkSession("s", "a", 0, time.Hour, 100)},
		Events:   []Event{{ID: "long", EventTypeID: "talk", DurationMinutes: 90}},
	}
	problem := NewBuilder(DefaultConstraints(), nil).Build(catalog)

	_, _, err := NewSolver(nil, SolverOptions{}, nil).Solve(context.Background(), problem, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFeasibleSchedule)
	assert.Contains(t, err.Error(), "long")
}

func TestSolverAllowPartialLeavesOverflowUnscheduled(t *testing.T) {
	catalog := Catalog{
		Sessions: []Session{talkSession("s", "a", 0, 2*time.Hour, 100)},
		Events:   []Event{talk("e1"), talk("e2"), talk("e3")},
	}
	problem := NewBuilder(DefaultConstraints(), nil).Build(catalog)

	schedule, stats, err := NewSolver(nil, SolverOptions{AllowPartial: true}, nil).Solve(context.Background(), problem, nil)
	require.NoError(t, err)
	assert.Len(t, schedule, 2)
	assert.Equal(t, 1, stats.Unscheduled)
	assert.True(t, problem.IsValid(schedule))
	assert.False(t, problem.Validate(schedule, ValidateOptions{Strict: true}).Valid)
}

func TestSolverUnknownObjective(t *testing.T) {
	problem := twoStageProblem(t, time.Hour, talk("e1"))

	_, _, err := NewSolver(nil, SolverOptions{}, nil).SolveWith(context.Background(), problem, Objective("fastest"), nil)
	assert.ErrorIs(t, err, ErrUnknownObjective)
}

func TestBranchAndBoundNodeLimit(t *testing.T) {
	problem := twoStageProblem(t, time.Hour, talk("e1"), talk("e2"))

	_, stats, err := NewBranchAndBound(1).Search(context.Background(), problem, func(int, int) int { return 0 }, SearchOptions{})
	assert.ErrorIs(t, err, ErrNoFeasibleSchedule)
	assert.False(t, stats.Optimal)
}

func TestBranchAndBoundEmptyProblem(t *testing.T) {
	problem := NewBuilder(DefaultConstraints(), nil).Build(Catalog{})

	schedule, stats, err := NewBranchAndBound(0).Search(context.Background(), problem, func(int, int) int { return 0 }, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, schedule)
	assert.True(t, stats.Optimal)
}

type stubBackend struct {
	schedule Schedule
	err      error
	opts     SearchOptions
}

func (s *stubBackend) Search(_ context.Context, _ *Problem, _ CostFunc, opts SearchOptions) (Schedule, Stats, error) {
	s.opts = opts
	return s.schedule, Stats{Nodes: 1}, s.err
}

func TestSolverSortsBackendResult(t *testing.T) {
	problem := twoStageProblem(t, time.Hour, talk("e1"), talk("e2"))
	backend := &stubBackend{schedule: Schedule{{Item: 1, Slot: 0}, {Item: 0, Slot: 1}}}

	schedule, stats, err := NewSolver(backend, SolverOptions{AllowPartial: true}, nil).Solve(context.Background(), problem, nil)
	require.NoError(t, err)
	assert.Equal(t, Schedule{{Item: 0, Slot: 1}, {Item: 1, Slot: 0}}, schedule)
	assert.True(t, backend.opts.AllowPartial)
	assert.Equal(t, 1, stats.Nodes)
}
