package scheduler

import (
	"sort"
	"time"
)

// Conflict records that two items may not run at overlapping times.
type Conflict struct {
	Item   int    `json:"item"`
	Other  int    `json:"other"`
	Reason string `json:"reason"`
}

// Unavailability is the read-only item/slot and item/item exclusion relation.
type Unavailability struct {
	slots     map[int]map[int]Reason
	conflicts map[int]map[int]string
}

// SlotReason returns the reason the item may not use the slot, if any.
func (u Unavailability) SlotReason(item, slot int) (Reason, bool) {
	reason, ok := u.slots[item][slot]
	return reason, ok
}

// Blocked reports whether the item may not use the slot.
func (u Unavailability) Blocked(item, slot int) bool {
	_, ok := u.slots[item][slot]
	return ok
}

// BlockedSlots returns the sorted slot indices unavailable to the item.
func (u Unavailability) BlockedSlots(item int) []int {
	out := make([]int, 0, len(u.slots[item]))
	for slot := range u.slots[item] {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// ConflictsOf returns the conflicts recorded on the item, ordered by the other item.
func (u Unavailability) ConflictsOf(item int) []Conflict {
	others := make([]int, 0, len(u.conflicts[item]))
	for other := range u.conflicts[item] {
		others = append(others, other)
	}
	sort.Ints(others)
	out := make([]Conflict, 0, len(others))
	for _, other := range others {
		out = append(out, Conflict{Item: item, Other: other, Reason: u.conflicts[item][other]})
	}
	return out
}

// ConflictBetween looks the pair up in both directions.
func (u Unavailability) ConflictBetween(a, b int) (string, bool) {
	if reason, ok := u.conflicts[a][b]; ok {
		return reason, true
	}
	reason, ok := u.conflicts[b][a]
	return reason, ok
}

// Conflicts returns every recorded conflict ordered by item then other item.
func (u Unavailability) Conflicts() []Conflict {
	items := make([]int, 0, len(u.conflicts))
	for item := range u.conflicts {
		items = append(items, item)
	}
	sort.Ints(items)
	var out []Conflict
	for _, item := range items {
		out = append(out, u.ConflictsOf(item)...)
	}
	return out
}

// Problem is the immutable model for one scheduling run.
type Problem struct {
	CampID         string
	Slots          []Slot
	Items          []Item
	Unavailability Unavailability
	SessionCount   int
	EventTypeCount int

	itemsByEvent map[string]int
}

func newProblem(campID string, slots []Slot, items []Item, u Unavailability) *Problem {
	byEvent := make(map[string]int, len(items))
	for _, item := range items {
		byEvent[item.EventID] = item.Index
	}
	return &Problem{
		CampID:         campID,
		Slots:          slots,
		Items:          items,
		Unavailability: u,
		itemsByEvent:   byEvent,
	}
}

// ItemByEvent finds the item for an event id.
func (p *Problem) ItemByEvent(eventID string) (Item, bool) {
	idx, ok := p.itemsByEvent[eventID]
	if !ok {
		return Item{}, false
	}
	return p.Items[idx], true
}

// FindSlot locates the slot starting at startsAt in the location for the given event type.
// An exact session match wins over a slot of another session of the same type.
func (p *Problem) FindSlot(eventTypeID, sessionID, locationID string, startsAt time.Time) (Slot, bool) {
	var (
		candidate Slot
		found     bool
	)
	for _, slot := range p.Slots {
		if slot.LocationID != locationID || !slot.StartsAt.Equal(startsAt) || slot.EventTypeID != eventTypeID {
			continue
		}
		if sessionID != "" && slot.SessionID == sessionID {
			return slot, true
		}
		if !found {
			candidate = slot
			found = true
		}
	}
	return candidate, found
}

// Allowed reports whether the item may legally be placed in the slot on its own.
func (p *Problem) Allowed(item, slot int) bool {
	if item < 0 || item >= len(p.Items) || slot < 0 || slot >= len(p.Slots) {
		return false
	}
	return !p.Unavailability.Blocked(item, slot) && p.Items[item].Fits(p.Slots[slot])
}

// PossibleSlots returns the slots the item could use if nothing else was scheduled.
func (p *Problem) PossibleSlots(item int) []int {
	var out []int
	for _, slot := range p.Slots {
		if p.Allowed(item, slot.Index) {
			out = append(out, slot.Index)
		}
	}
	return out
}

// Sorted returns a copy of the schedule ordered by item then slot.
func (p *Problem) Sorted(s Schedule) Schedule {
	out := make(Schedule, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Item == out[j].Item {
			return out[i].Slot < out[j].Slot
		}
		return out[i].Item < out[j].Item
	})
	return out
}
