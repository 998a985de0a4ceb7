package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultMaxNodes bounds the branch and bound search when no limit is configured.
const DefaultMaxNodes = 2_000_000

const unvisited = -2

// BranchAndBound is a depth-first branch and bound search with forward checking.
// Items with the fewest possible slots are branched on first and each item tries its
// cheapest slots first, so the first complete assignment is usually close to optimal.
type BranchAndBound struct {
	MaxNodes int
}

// NewBranchAndBound returns a backend limited to maxNodes search nodes.
func NewBranchAndBound(maxNodes int) *BranchAndBound {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &BranchAndBound{MaxNodes: maxNodes}
}

type score struct {
	unscheduled int
	cost        int
}

func (s score) add(o score) score {
	return score{unscheduled: s.unscheduled + o.unscheduled, cost: s.cost + o.cost}
}

func (s score) less(o score) bool {
	if s.unscheduled != o.unscheduled {
		return s.unscheduled < o.unscheduled
	}
	return s.cost < o.cost
}

type candidate struct {
	slot  int
	score score
}

type search struct {
	ctx          context.Context
	problem      *Problem
	allowPartial bool
	maxNodes     int

	order      []int
	candidates [][]candidate
	bound      []score
	neighbours [][]int

	slotOwner []int
	assigned  []int

	best      []int
	bestScore score
	found     bool

	nodes    int
	limitHit bool
	stop     bool
	err      error
}

// Search implements Backend.
func (b *BranchAndBound) Search(ctx context.Context, problem *Problem, cost CostFunc, opts SearchOptions) (Schedule, Stats, error) {
	if len(problem.Items) == 0 {
		return Schedule{}, Stats{Optimal: true}, nil
	}

	s := &search{
		ctx:          ctx,
		problem:      problem,
		allowPartial: opts.AllowPartial,
		maxNodes:     b.MaxNodes,
		neighbours:   make([][]int, len(problem.Items)),
		slotOwner:    make([]int, len(problem.Slots)),
		assigned:     make([]int, len(problem.Items)),
	}
	for _, c := range problem.Unavailability.Conflicts() {
		s.neighbours[c.Item] = append(s.neighbours[c.Item], c.Other)
		s.neighbours[c.Other] = append(s.neighbours[c.Other], c.Item)
	}
	for i := range s.slotOwner {
		s.slotOwner[i] = Unassigned
	}
	for i := range s.assigned {
		s.assigned[i] = unvisited
	}

	perItem := make([][]candidate, len(problem.Items))
	for _, item := range problem.Items {
		var options []candidate
		for _, slot := range problem.PossibleSlots(item.Index) {
			options = append(options, candidate{slot: slot, score: score{cost: cost(item.Index, slot)}})
		}
		if opts.AllowPartial {
			options = append(options, candidate{slot: Unassigned, score: score{unscheduled: 1, cost: cost(item.Index, Unassigned)}})
		}
		if len(options) == 0 {
			return nil, Stats{}, fmt.Errorf("%w: event %s has no possible slot", ErrNoFeasibleSchedule, item)
		}
		sort.SliceStable(options, func(i, j int) bool {
			if options[i].score != options[j].score {
				return options[i].score.less(options[j].score)
			}
			return options[i].slot < options[j].slot
		})
		perItem[item.Index] = options
	}

	s.order = make([]int, len(problem.Items))
	for i := range s.order {
		s.order[i] = i
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		a, c := s.order[i], s.order[j]
		if len(perItem[a]) != len(perItem[c]) {
			return len(perItem[a]) < len(perItem[c])
		}
		if len(s.neighbours[a]) != len(s.neighbours[c]) {
			return len(s.neighbours[a]) > len(s.neighbours[c])
		}
		return a < c
	})

	s.candidates = make([][]candidate, len(s.order))
	for depth, item := range s.order {
		s.candidates[depth] = perItem[item]
	}
	s.bound = make([]score, len(s.order)+1)
	for depth := len(s.order) - 1; depth >= 0; depth-- {
		s.bound[depth] = s.bound[depth+1].add(s.candidates[depth][0].score)
	}

	s.dfs(0, score{})

	stats := Stats{Nodes: s.nodes, Optimal: s.found && !s.limitHit && s.err == nil}
	if s.err != nil && !(s.found && errors.Is(s.err, context.DeadlineExceeded)) {
		return nil, stats, s.err
	}
	if !s.found {
		if s.limitHit {
			return nil, stats, fmt.Errorf("%w: search stopped after %d nodes", ErrNoFeasibleSchedule, s.nodes)
		}
		return nil, stats, ErrNoFeasibleSchedule
	}

	schedule := make(Schedule, 0, len(s.best))
	for item, slot := range s.best {
		if slot >= 0 {
			schedule = append(schedule, Assignment{Item: item, Slot: slot})
		}
	}
	stats.Cost = s.bestScore.cost
	stats.Unscheduled = s.bestScore.unscheduled
	return schedule, stats, nil
}

func (s *search) dfs(depth int, current score) {
	if s.stop {
		return
	}
	s.nodes++
	if s.nodes%1024 == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			s.stop = true
			return
		}
	}
	if s.nodes > s.maxNodes {
		s.limitHit = true
		s.stop = true
		return
	}

	if depth == len(s.order) {
		if !s.found || current.less(s.bestScore) {
			s.best = append(s.best[:0], s.assigned...)
			s.bestScore = current
			s.found = true
		}
		return
	}
	if s.found && !current.add(s.bound[depth]).less(s.bestScore) {
		return
	}

	item := s.order[depth]
	for _, c := range s.candidates[depth] {
		next := current.add(c.score)
		if s.found && !next.add(s.bound[depth+1]).less(s.bestScore) {
			// candidates are sorted, nothing later can do better
			break
		}
		if c.slot != Unassigned && !s.placeable(item, c.slot) {
			continue
		}
		s.place(item, c.slot)
		if s.forwardCheck(depth + 1) {
			s.dfs(depth+1, next)
		}
		s.unplace(item, c.slot)
		if s.stop {
			return
		}
	}
}

func (s *search) placeable(item, slot int) bool {
	if s.slotOwner[slot] != Unassigned {
		return false
	}
	target := s.problem.Slots[slot]
	for _, other := range s.neighbours[item] {
		if placed := s.assigned[other]; placed >= 0 && s.problem.Slots[placed].Overlaps(target) {
			return false
		}
	}
	return true
}

func (s *search) place(item, slot int) {
	s.assigned[item] = slot
	if slot != Unassigned {
		s.slotOwner[slot] = item
	}
}

func (s *search) unplace(item, slot int) {
	s.assigned[item] = unvisited
	if slot != Unassigned {
		s.slotOwner[slot] = Unassigned
	}
}

// forwardCheck verifies every remaining item still has somewhere to go.
func (s *search) forwardCheck(from int) bool {
	if s.allowPartial {
		return true
	}
	for depth := from; depth < len(s.order); depth++ {
		item := s.order[depth]
		ok := false
		for _, c := range s.candidates[depth] {
			if s.placeable(item, c.slot) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
