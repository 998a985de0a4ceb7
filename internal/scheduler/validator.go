package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ViolationKind classifies a Validate finding.
type ViolationKind string

const (
	ViolationUnknownItem   ViolationKind = "unknown_item"
	ViolationUnknownSlot   ViolationKind = "unknown_slot"
	ViolationDoubleBooked  ViolationKind = "double_booked"
	ViolationMultipleSlots ViolationKind = "multiple_slots"
	ViolationUnavailable   ViolationKind = "unavailable"
	ViolationTooLong       ViolationKind = "too_long"
	ViolationConflict      ViolationKind = "conflict"
	ViolationUnscheduled   ViolationKind = "unscheduled"
)

// Violation is a single broken rule.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Items   []int         `json:"items,omitempty"`
	Slots   []int         `json:"slots,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) String() string { return v.Message }

// ValidateOptions tune Validate.
type ValidateOptions struct {
	// Strict additionally reports items that are missing from the schedule.
	Strict bool
}

// Result is the outcome of Validate.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Messages returns the violation messages.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}

// IsValid reports whether the schedule breaks no hard rule.
func (p *Problem) IsValid(schedule Schedule) bool {
	return p.Validate(schedule, ValidateOptions{}).Valid
}

// Validate checks every hard rule and reports each violation on its own.
func (p *Problem) Validate(schedule Schedule, opts ValidateOptions) Result {
	var violations []Violation
	report := func(v Violation) { violations = append(violations, v) }

	known := make(Schedule, 0, len(schedule))
	for _, a := range schedule {
		switch {
		case a.Item < 0 || a.Item >= len(p.Items):
			report(Violation{Kind: ViolationUnknownItem, Items: []int{a.Item}, Message: fmt.Sprintf("item %d does not exist", a.Item)})
		case a.Slot < 0 || a.Slot >= len(p.Slots):
			report(Violation{Kind: ViolationUnknownSlot, Items: []int{a.Item}, Slots: []int{a.Slot}, Message: fmt.Sprintf("%s is placed in slot %d which does not exist", p.Items[a.Item], a.Slot)})
		default:
			known = append(known, a)
		}
	}
	known = uniqueAssignments(known)

	bySlot := known.ItemsBySlot()
	for _, slot := range sortedKeys(bySlot) {
		items := bySlot[slot]
		if len(items) < 2 {
			continue
		}
		report(Violation{
			Kind:    ViolationDoubleBooked,
			Items:   items,
			Slots:   []int{slot},
			Message: fmt.Sprintf("slot %s hosts %d events: %s", p.Slots[slot], len(items), p.itemNames(items)),
		})
	}

	byItem := known.SlotsByItem()
	for _, item := range sortedKeys(byItem) {
		slots := byItem[item]
		if len(slots) < 2 {
			continue
		}
		report(Violation{
			Kind:    ViolationMultipleSlots,
			Items:   []int{item},
			Slots:   slots,
			Message: fmt.Sprintf("%s occupies %d slots", p.Items[item], len(slots)),
		})
	}

	for _, a := range known {
		item, slot := p.Items[a.Item], p.Slots[a.Slot]
		if reason, blocked := p.Unavailability.SlotReason(a.Item, a.Slot); blocked {
			report(Violation{
				Kind:    ViolationUnavailable,
				Items:   []int{a.Item},
				Slots:   []int{a.Slot},
				Message: fmt.Sprintf("%s cannot use slot %s: %s", item, slot, reason),
			})
		}
		if !item.Fits(slot) {
			report(Violation{
				Kind:    ViolationTooLong,
				Items:   []int{a.Item},
				Slots:   []int{a.Slot},
				Message: fmt.Sprintf("%s lasts %d minutes but slot %s is %d minutes", item, item.Duration, slot, slot.Duration),
			})
		}
	}

	for i := 0; i < len(known); i++ {
		for j := i + 1; j < len(known); j++ {
			a, b := known[i], known[j]
			if a.Item == b.Item || !p.Slots[a.Slot].Overlaps(p.Slots[b.Slot]) {
				continue
			}
			reason, conflicting := p.Unavailability.ConflictBetween(a.Item, b.Item)
			if !conflicting {
				continue
			}
			report(Violation{
				Kind:  ViolationConflict,
				Items: []int{a.Item, b.Item},
				Slots: []int{a.Slot, b.Slot},
				Message: fmt.Sprintf("%s in %s overlaps %s in %s: %s",
					p.Items[a.Item], p.Slots[a.Slot], p.Items[b.Item], p.Slots[b.Slot], reason),
			})
		}
	}

	if opts.Strict {
		for _, item := range p.Items {
			if _, ok := byItem[item.Index]; !ok {
				report(Violation{
					Kind:    ViolationUnscheduled,
					Items:   []int{item.Index},
					Message: fmt.Sprintf("%s is not scheduled", item),
				})
			}
		}
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

func (p *Problem) itemNames(items []int) string {
	return strings.Join(lo.Map(items, func(idx int, _ int) string { return p.Items[idx].String() }), ", ")
}

// uniqueAssignments drops repeated identical pairings which would otherwise be reported
// as a slot hosting the same event twice.
func uniqueAssignments(s Schedule) Schedule {
	seen := make(map[Assignment]bool, len(s))
	out := s[:0]
	for _, a := range s {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
