package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNoFeasibleSchedule is returned when the hard constraints cannot be satisfied.
	ErrNoFeasibleSchedule = errors.New("no feasible schedule")
	// ErrUnknownObjective is returned for an objective the solver does not implement.
	ErrUnknownObjective = errors.New("unknown objective")
)

// Objective selects what the solver minimises.
type Objective string

const (
	// ObjectiveCapacityDemand minimises the gap between slot capacity and event demand.
	ObjectiveCapacityDemand Objective = "capacity_demand_difference"
	// ObjectiveChanges minimises item/slot pairings that differ from a reference schedule.
	ObjectiveChanges Objective = "number_of_changes"
)

// CostFunc scores placing an item in a slot. slot is Unassigned when the item is left out.
type CostFunc func(item, slot int) int

// SearchOptions are passed to a Backend.
type SearchOptions struct {
	AllowPartial bool
}

// Stats summarises a solver run.
type Stats struct {
	Objective   Objective     `json:"objective"`
	Cost        int           `json:"cost"`
	Unscheduled int           `json:"unscheduled"`
	Nodes       int           `json:"nodes"`
	Optimal     bool          `json:"optimal"`
	Duration    time.Duration `json:"duration"`
}

// Backend performs the combinatorial search.
type Backend interface {
	Search(ctx context.Context, problem *Problem, cost CostFunc, opts SearchOptions) (Schedule, Stats, error)
}

// SolverOptions configure a Solver.
type SolverOptions struct {
	AllowPartial bool
}

// Solver picks the objective and delegates to a Backend.
type Solver struct {
	backend Backend
	opts    SolverOptions
	logger  *zap.Logger
}

// NewSolver builds a solver. A nil backend selects the branch and bound search.
func NewSolver(backend Backend, opts SolverOptions, logger *zap.Logger) *Solver {
	if backend == nil {
		backend = NewBranchAndBound(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{backend: backend, opts: opts, logger: logger}
}

// Solve computes a schedule. With a non-empty reference the number of changes against it
// is minimised, otherwise the capacity/demand difference.
func (s *Solver) Solve(ctx context.Context, problem *Problem, reference Schedule) (Schedule, Stats, error) {
	objective := ObjectiveCapacityDemand
	if len(reference) > 0 {
		objective = ObjectiveChanges
	}
	return s.SolveWith(ctx, problem, objective, reference)
}

// SolveWith computes a schedule for an explicit objective.
func (s *Solver) SolveWith(ctx context.Context, problem *Problem, objective Objective, reference Schedule) (Schedule, Stats, error) {
	cost, err := costFunc(problem, objective, reference)
	if err != nil {
		return nil, Stats{Objective: objective}, err
	}

	started := time.Now()
	schedule, stats, err := s.backend.Search(ctx, problem, cost, SearchOptions{AllowPartial: s.opts.AllowPartial})
	stats.Objective = objective
	stats.Duration = time.Since(started)
	if err != nil {
		s.logger.Debug("autoscheduler search failed",
			zap.String("objective", string(objective)),
			zap.Int("nodes", stats.Nodes),
			zap.Error(err),
		)
		return nil, stats, err
	}

	s.logger.Debug("autoscheduler search finished",
		zap.String("objective", string(objective)),
		zap.Int("cost", stats.Cost),
		zap.Int("unscheduled", stats.Unscheduled),
		zap.Int("nodes", stats.Nodes),
		zap.Bool("optimal", stats.Optimal),
		zap.Duration("duration", stats.Duration),
	)
	return problem.Sorted(schedule), stats, nil
}

func costFunc(problem *Problem, objective Objective, reference Schedule) (CostFunc, error) {
	switch objective {
	case ObjectiveCapacityDemand:
		return func(item, slot int) int {
			if slot == Unassigned {
				return 0
			}
			demand := problem.Items[item].Demand
			if demand <= 0 {
				return 0
			}
			diff := problem.Slots[slot].Capacity - demand
			if diff < 0 {
				return -diff
			}
			return diff
		}, nil
	case ObjectiveChanges:
		original := make(map[int]map[int]bool)
		for _, a := range reference {
			if original[a.Item] == nil {
				original[a.Item] = make(map[int]bool)
			}
			original[a.Item][a.Slot] = true
		}
		return func(item, slot int) int {
			before := original[item]
			if slot == Unassigned {
				return len(before)
			}
			if before[slot] {
				return len(before) - 1
			}
			return len(before) + 1
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownObjective, objective)
	}
}
