// Package scheduler builds and solves the slot/event assignment problem used by the camp
// program AutoScheduler.
//
// The package is pure: it never talks to storage. Callers hand a Catalog to a Builder, which
// produces an immutable Problem. A Solver turns the Problem into a Schedule, and the Problem
// can validate, diff and resolve schedules against itself.
package scheduler

import (
	"fmt"
	"time"
)

// Unassigned marks an item without a slot.
const Unassigned = -1

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether other lies entirely within r.
func (r TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// Overlaps reports whether r and other share any instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Minutes returns the length of the range in whole minutes.
func (r TimeRange) Minutes() int {
	return int(r.End.Sub(r.Start) / time.Minute)
}

// Slot is one bookable chunk of a session.
type Slot struct {
	Index        int       `json:"index"`
	SessionID    string    `json:"sessionId"`
	EventTypeID  string    `json:"eventTypeId"`
	LocationID   string    `json:"locationId"`
	LocationName string    `json:"locationName"`
	StartsAt     time.Time `json:"startsAt"`
	Duration     int       `json:"duration"`
	Capacity     int       `json:"capacity"`
}

// EndsAt returns the end of the slot.
func (s Slot) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.Duration) * time.Minute)
}

// Range returns the slot as a TimeRange.
func (s Slot) Range() TimeRange {
	return TimeRange{Start: s.StartsAt, End: s.EndsAt()}
}

// Overlaps reports whether the two slots share any instant.
func (s Slot) Overlaps(other Slot) bool {
	return s.Range().Overlaps(other.Range())
}

func (s Slot) String() string {
	name := s.LocationName
	if name == "" {
		name = s.LocationID
	}
	return fmt.Sprintf("%s @ %s (%dm)", name, s.StartsAt.UTC().Format("2006-01-02 15:04"), s.Duration)
}

// Item is an event awaiting placement.
type Item struct {
	Index       int      `json:"index"`
	EventID     string   `json:"eventId"`
	EventTypeID string   `json:"eventTypeId"`
	Title       string   `json:"title"`
	Duration    int      `json:"duration"`
	Demand      int      `json:"demand"`
	SpeakerIDs  []string `json:"speakerIds"`
}

func (i Item) String() string {
	if i.Title != "" {
		return fmt.Sprintf("%q (%s)", i.Title, i.EventID)
	}
	return i.EventID
}

// Fits reports whether the item can run inside the slot.
func (i Item) Fits(slot Slot) bool {
	return i.Duration <= slot.Duration
}

// ReasonKind classifies why an item cannot use a slot.
type ReasonKind string

const (
	ReasonEventType          ReasonKind = "event_type"
	ReasonSpeakerUnavailable ReasonKind = "speaker_unavailable"
	ReasonSpeakerBusy        ReasonKind = "speaker_busy"
	ReasonSpeakerAttending   ReasonKind = "speaker_attending"
)

// Reason explains a single unavailability entry.
type Reason struct {
	Kind   ReasonKind `json:"kind"`
	Detail string     `json:"detail"`
}

func (r Reason) String() string {
	switch r.Kind {
	case ReasonEventType:
		return "slot belongs to event type " + r.Detail
	case ReasonSpeakerUnavailable:
		return "speaker " + r.Detail + " is not available"
	case ReasonSpeakerBusy:
		return "speaker " + r.Detail + " is scheduled elsewhere"
	case ReasonSpeakerAttending:
		return "speaker " + r.Detail + " wants to attend another event"
	default:
		return r.Detail
	}
}

// Assignment pairs an item index with a slot index.
type Assignment struct {
	Item int `json:"item"`
	Slot int `json:"slot"`
}

// Schedule is a set of item/slot pairings. Items without a slot are absent.
type Schedule []Assignment

// SlotsByItem groups slot indices per item, preserving schedule order.
func (s Schedule) SlotsByItem() map[int][]int {
	out := make(map[int][]int, len(s))
	for _, a := range s {
		out[a.Item] = append(out[a.Item], a.Slot)
	}
	return out
}

// ItemsBySlot groups item indices per slot, preserving schedule order.
func (s Schedule) ItemsBySlot() map[int][]int {
	out := make(map[int][]int, len(s))
	for _, a := range s {
		out[a.Slot] = append(out[a.Slot], a.Item)
	}
	return out
}
