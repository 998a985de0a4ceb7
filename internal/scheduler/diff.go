package scheduler

// EventDiff describes an item whose slot changed. Old or New is nil when the item was
// unscheduled on that side.
type EventDiff struct {
	Item Item  `json:"item"`
	Old  *Slot `json:"old"`
	New  *Slot `json:"new"`
}

// SlotDiff describes a slot whose occupant changed.
type SlotDiff struct {
	Slot Slot  `json:"slot"`
	Old  *Item `json:"old"`
	New  *Item `json:"new"`
}

// Difference is the sparse change set between two schedules.
type Difference struct {
	EventDiffs []EventDiff `json:"eventDiffs"`
	SlotDiffs  []SlotDiff  `json:"slotDiffs"`
}

// Empty reports whether the two schedules were identical.
func (d Difference) Empty() bool {
	return len(d.EventDiffs) == 0 && len(d.SlotDiffs) == 0
}

// Diff compares two schedules over the problem. Both lists follow item and slot order.
// A schedule holding more than one pairing for an item or slot is compared by its first.
func (p *Problem) Diff(previous, next Schedule) Difference {
	oldSlots, newSlots := firstByItem(previous, len(p.Items)), firstByItem(next, len(p.Items))
	oldItems, newItems := firstBySlot(previous, len(p.Slots)), firstBySlot(next, len(p.Slots))

	diff := Difference{EventDiffs: []EventDiff{}, SlotDiffs: []SlotDiff{}}
	for _, item := range p.Items {
		before, after := oldSlots[item.Index], newSlots[item.Index]
		if before == after {
			continue
		}
		diff.EventDiffs = append(diff.EventDiffs, EventDiff{
			Item: item,
			Old:  p.slotAt(before),
			New:  p.slotAt(after),
		})
	}
	for _, slot := range p.Slots {
		before, after := oldItems[slot.Index], newItems[slot.Index]
		if before == after {
			continue
		}
		diff.SlotDiffs = append(diff.SlotDiffs, SlotDiff{
			Slot: slot,
			Old:  p.itemAt(before),
			New:  p.itemAt(after),
		})
	}
	return diff
}

func (p *Problem) slotAt(idx int) *Slot {
	if idx < 0 || idx >= len(p.Slots) {
		return nil
	}
	slot := p.Slots[idx]
	return &slot
}

func (p *Problem) itemAt(idx int) *Item {
	if idx < 0 || idx >= len(p.Items) {
		return nil
	}
	item := p.Items[idx]
	return &item
}

func firstByItem(s Schedule, n int) []int {
	out := unassignedList(n)
	for _, a := range s {
		if a.Item >= 0 && a.Item < n && out[a.Item] == Unassigned {
			out[a.Item] = a.Slot
		}
	}
	return out
}

func firstBySlot(s Schedule, n int) []int {
	out := unassignedList(n)
	for _, a := range s {
		if a.Slot >= 0 && a.Slot < n && out[a.Slot] == Unassigned {
			out[a.Slot] = a.Item
		}
	}
	return out
}

func unassignedList(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = Unassigned
	}
	return out
}
