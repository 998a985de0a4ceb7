package scheduler

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Session is a window of time in a location reserved for one event type.
type Session struct {
	ID                   string
	EventTypeID          string
	EventTypeName        string
	LocationID           string
	LocationName         string
	When                 TimeRange
	EventDurationMinutes int
	Capacity             int
	// Busy holds manually scheduled placements in this or a conflicting location which
	// overlap the session. Slots touching them are not offered.
	Busy []TimeRange
}

// Event is a candidate for automatic placement.
type Event struct {
	ID              string
	EventTypeID     string
	Title           string
	DurationMinutes int
	Demand          int
	SpeakerIDs      []string
}

// Speaker carries the availability and attendance wishes of one speaker.
type Speaker struct {
	ID        string
	Name      string
	Available []TimeRange
	// Attending lists events the speaker wishes to attend.
	Attending []string
}

// FixedPlacement is an event placed outside the automatic pool.
type FixedPlacement struct {
	EventID    string
	SpeakerIDs []string
	When       TimeRange
}

// Catalog is the external state a Builder turns into a Problem.
type Catalog struct {
	CampID     string
	EventTypes []string
	Sessions   []Session
	Events     []Event
	Speakers   map[string]Speaker
	Fixed      []FixedPlacement
}

// ConstraintOptions toggles the constraint families added by the Builder.
type ConstraintOptions struct {
	EventType             bool `json:"eventTypeConstraint"`
	SpeakersOtherEvents   bool `json:"speakersOtherEventsConstraint"`
	SpeakerEventConflicts bool `json:"speakerEventConflictsConstraint"`
	SpeakerAvailability   bool `json:"speakerAvailabilityConstraint"`
}

// DefaultConstraints enables every constraint family.
func DefaultConstraints() ConstraintOptions {
	return ConstraintOptions{
		EventType:             true,
		SpeakersOtherEvents:   true,
		SpeakerEventConflicts: true,
		SpeakerAvailability:   true,
	}
}

// Builder turns a Catalog into a Problem.
type Builder struct {
	options ConstraintOptions
	logger  *zap.Logger
}

// NewBuilder constructs a builder with the given constraint toggles.
func NewBuilder(options ConstraintOptions, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{options: options, logger: logger}
}

// CutSlots chops a window into consecutive chunks of the given length. The last chunk is
// shortened to the window boundary when the window does not divide evenly.
func CutSlots(when TimeRange, minutes int) []TimeRange {
	if minutes <= 0 || !when.End.After(when.Start) {
		return nil
	}
	step := time.Duration(minutes) * time.Minute
	var out []TimeRange
	for start := when.Start; start.Before(when.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(when.End) {
			end = when.End
		}
		out = append(out, TimeRange{Start: start, End: end})
	}
	return out
}

// Build produces the immutable problem for one run.
func (b *Builder) Build(catalog Catalog) *Problem {
	sessions := make([]Session, len(catalog.Sessions))
	copy(sessions, catalog.Sessions)
	sort.SliceStable(sessions, func(i, j int) bool {
		a, c := sessions[i], sessions[j]
		if !a.When.Start.Equal(c.When.Start) {
			return a.When.Start.Before(c.When.Start)
		}
		if a.EventTypeID != c.EventTypeID {
			return a.EventTypeID < c.EventTypeID
		}
		if a.LocationID != c.LocationID {
			return a.LocationID < c.LocationID
		}
		return a.ID < c.ID
	})

	slots := b.buildSlots(sessions)
	items := b.buildItems(catalog.Events)
	unavailability := b.buildUnavailability(catalog, slots, items)

	problem := newProblem(catalog.CampID, slots, items, unavailability)
	problem.SessionCount = len(sessions)
	problem.EventTypeCount = len(lo.Uniq(catalog.EventTypes))

	b.logger.Debug("autoscheduler problem built",
		zap.String("camp_id", catalog.CampID),
		zap.Int("sessions", len(sessions)),
		zap.Int("slots", len(slots)),
		zap.Int("items", len(items)),
		zap.Int("conflicts", len(unavailability.Conflicts())),
	)
	return problem
}

func (b *Builder) buildSlots(sessions []Session) []Slot {
	var slots []Slot
	for _, session := range sessions {
		for _, chunk := range CutSlots(session.When, session.EventDurationMinutes) {
			if overlapsAny(chunk, session.Busy) {
				continue
			}
			slots = append(slots, Slot{
				Index:        len(slots),
				SessionID:    session.ID,
				EventTypeID:  session.EventTypeID,
				LocationID:   session.LocationID,
				LocationName: session.LocationName,
				StartsAt:     chunk.Start,
				Duration:     chunk.Minutes(),
				Capacity:     session.Capacity,
			})
		}
	}
	return slots
}

func (b *Builder) buildItems(events []Event) []Item {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	sorted = lo.UniqBy(sorted, func(e Event) string { return e.ID })

	items := make([]Item, 0, len(sorted))
	for _, event := range sorted {
		items = append(items, Item{
			Index:       len(items),
			EventID:     event.ID,
			EventTypeID: event.EventTypeID,
			Title:       event.Title,
			Duration:    event.DurationMinutes,
			Demand:      event.Demand,
			SpeakerIDs:  lo.Uniq(event.SpeakerIDs),
		})
	}
	return items
}

func (b *Builder) buildUnavailability(catalog Catalog, slots []Slot, items []Item) Unavailability {
	u := Unavailability{
		slots:     make(map[int]map[int]Reason),
		conflicts: make(map[int]map[int]string),
	}
	blockSlot := func(item, slot int, reason Reason) {
		if u.slots[item] == nil {
			u.slots[item] = make(map[int]Reason)
		}
		if _, exists := u.slots[item][slot]; !exists {
			u.slots[item][slot] = reason
		}
	}
	addConflict := func(item, other int, reason string) {
		if u.conflicts[item] == nil {
			u.conflicts[item] = make(map[int]string)
		}
		if _, exists := u.conflicts[item][other]; !exists {
			u.conflicts[item][other] = reason
		}
	}

	slotsByType := lo.GroupBy(slots, func(s Slot) string { return s.EventTypeID })
	itemIndex := lo.SliceToMap(items, func(i Item) (string, int) { return i.EventID, i.Index })

	itemsBySpeaker := make(map[string][]int)
	for _, item := range items {
		for _, speakerID := range item.SpeakerIDs {
			itemsBySpeaker[speakerID] = append(itemsBySpeaker[speakerID], item.Index)
		}
	}

	fixedByEvent := lo.GroupBy(catalog.Fixed, func(f FixedPlacement) string { return f.EventID })
	fixedBySpeaker := make(map[string][]FixedPlacement)
	for _, fixed := range catalog.Fixed {
		for _, speakerID := range lo.Uniq(fixed.SpeakerIDs) {
			fixedBySpeaker[speakerID] = append(fixedBySpeaker[speakerID], fixed)
		}
	}

	for _, item := range items {
		if b.options.EventType {
			for typeID, typed := range slotsByType {
				if typeID == item.EventTypeID {
					continue
				}
				for _, slot := range typed {
					blockSlot(item.Index, slot.Index, Reason{Kind: ReasonEventType, Detail: typeID})
				}
			}
		}

		for _, speakerID := range item.SpeakerIDs {
			speaker, known := catalog.Speakers[speakerID]
			name := speakerID
			if known && speaker.Name != "" {
				name = speaker.Name
			}

			if b.options.SpeakersOtherEvents {
				// the later item carries the pairing so the pair is constrained once
				for _, other := range itemsBySpeaker[speakerID] {
					if other < item.Index {
						addConflict(item.Index, other, "speaker "+name+" presents both events")
					}
				}
				for _, fixed := range fixedBySpeaker[speakerID] {
					for _, slot := range slots {
						if slot.Range().Overlaps(fixed.When) {
							blockSlot(item.Index, slot.Index, Reason{Kind: ReasonSpeakerBusy, Detail: name})
						}
					}
				}
			}

			if b.options.SpeakerEventConflicts && known {
				for _, eventID := range lo.Uniq(speaker.Attending) {
					if other, inPool := itemIndex[eventID]; inPool {
						if other != item.Index {
							later, earlier := lo.Max([]int{item.Index, other}), lo.Min([]int{item.Index, other})
							addConflict(later, earlier, "speaker "+name+" wants to attend "+eventID)
						}
						continue
					}
					for _, fixed := range fixedByEvent[eventID] {
						for _, slot := range slots {
							if slot.Range().Overlaps(fixed.When) {
								blockSlot(item.Index, slot.Index, Reason{Kind: ReasonSpeakerAttending, Detail: name})
							}
						}
					}
				}
			}

			if b.options.SpeakerAvailability {
				for _, slot := range slots {
					if !coveredByAny(slot.Range(), speaker.Available) {
						blockSlot(item.Index, slot.Index, Reason{Kind: ReasonSpeakerUnavailable, Detail: name})
					}
				}
			}
		}
	}
	return u
}

func overlapsAny(r TimeRange, ranges []TimeRange) bool {
	for _, other := range ranges {
		if r.Overlaps(other) {
			return true
		}
	}
	return false
}

func coveredByAny(r TimeRange, ranges []TimeRange) bool {
	for _, window := range ranges {
		if window.Contains(r) {
			return true
		}
	}
	return false
}
