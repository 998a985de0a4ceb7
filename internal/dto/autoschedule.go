package dto

import (
	"time"

	"github.com/noah-isme/camp-autoscheduler/internal/scheduler"
)

// ConstraintsRequest toggles constraint families. Omitted toggles stay enabled.
type ConstraintsRequest struct {
	EventType             *bool `json:"eventTypeConstraint"`
	SpeakersOtherEvents   *bool `json:"speakersOtherEventsConstraint"`
	SpeakerEventConflicts *bool `json:"speakerEventConflictsConstraint"`
	SpeakerAvailability   *bool `json:"speakerAvailabilityConstraint"`
}

// Options resolves the toggles against the defaults.
func (r *ConstraintsRequest) Options() scheduler.ConstraintOptions {
	opts := scheduler.DefaultConstraints()
	if r == nil {
		return opts
	}
	if r.EventType != nil {
		opts.EventType = *r.EventType
	}
	if r.SpeakersOtherEvents != nil {
		opts.SpeakersOtherEvents = *r.SpeakersOtherEvents
	}
	if r.SpeakerEventConflicts != nil {
		opts.SpeakerEventConflicts = *r.SpeakerEventConflicts
	}
	if r.SpeakerAvailability != nil {
		opts.SpeakerAvailability = *r.SpeakerAvailability
	}
	return opts
}

// CalculateRequest asks for a new proposal. Mode "similar" keeps as much of the current
// program as possible, "new" starts from scratch.
type CalculateRequest struct {
	CampID      string              `json:"-" validate:"required"`
	Mode        string              `json:"mode" validate:"omitempty,oneof=new similar"`
	Constraints *ConstraintsRequest `json:"constraints"`
	RequestedBy string              `json:"-"`
}

// ValidateRequest checks the current program or a freshly computed one.
type ValidateRequest struct {
	CampID      string              `json:"-" validate:"required"`
	Schedule    string              `json:"schedule" validate:"omitempty,oneof=current similar new"`
	Constraints *ConstraintsRequest `json:"constraints"`
}

// ApplyRequest recomputes a program and persists it in one step.
type ApplyRequest struct {
	CampID      string              `json:"-" validate:"required"`
	Mode        string              `json:"mode" validate:"omitempty,oneof=new similar"`
	Constraints *ConstraintsRequest `json:"constraints"`
	RequestedBy string              `json:"-"`
}

// ApplyProposalRequest persists a previously calculated proposal.
type ApplyProposalRequest struct {
	CampID      string `validate:"required"`
	ProposalID  string `validate:"required,uuid"`
	RequestedBy string
}

// ExportQuery selects the printout format.
type ExportQuery struct {
	Format string `form:"format"`
}

// PlacementView is one event placed in a slot.
type PlacementView struct {
	EventID      string    `json:"eventId"`
	EventTitle   string    `json:"eventTitle"`
	SessionID    string    `json:"sessionId"`
	LocationID   string    `json:"locationId"`
	LocationName string    `json:"locationName"`
	StartsAt     time.Time `json:"startsAt"`
	EndsAt       time.Time `json:"endsAt"`
}

// ReferenceGapView is a persisted placement that could not be mapped onto a slot.
type ReferenceGapView struct {
	PlacementID string    `json:"placementId"`
	EventID     string    `json:"eventId"`
	LocationID  string    `json:"locationId"`
	StartsAt    time.Time `json:"startsAt"`
	Reason      string    `json:"reason"`
}

// ViolationView is a single hard constraint violation.
type ViolationView struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	EventIDs []string `json:"eventIds,omitempty"`
}

// SlotView describes a slot in a diff.
type SlotView struct {
	SessionID    string    `json:"sessionId"`
	LocationID   string    `json:"locationId"`
	LocationName string    `json:"locationName"`
	StartsAt     time.Time `json:"startsAt"`
	Duration     int       `json:"duration"`
}

// EventView describes an event in a diff.
type EventView struct {
	EventID string `json:"eventId"`
	Title   string `json:"title"`
}

// EventDiffView reports an event whose slot changed.
type EventDiffView struct {
	Event EventView `json:"event"`
	Old   *SlotView `json:"old,omitempty"`
	New   *SlotView `json:"new,omitempty"`
}

// SlotDiffView reports a slot whose event changed.
type SlotDiffView struct {
	Slot SlotView   `json:"slot"`
	Old  *EventView `json:"old,omitempty"`
	New  *EventView `json:"new,omitempty"`
}

// DiffResponse lists the differences between two programs.
type DiffResponse struct {
	EventDiffs []EventDiffView `json:"eventDiffs"`
	SlotDiffs  []SlotDiffView  `json:"slotDiffs"`
}

// SolveStats summarises the search behind a proposal.
type SolveStats struct {
	Objective   string `json:"objective"`
	Cost        int    `json:"cost"`
	Unscheduled int    `json:"unscheduled"`
	Nodes       int    `json:"nodes"`
	Optimal     bool   `json:"optimal"`
	DurationMs  int64  `json:"durationMs"`
}

// ProposalResponse returns a calculated program.
type ProposalResponse struct {
	ProposalID    string             `json:"proposalId"`
	CampID        string             `json:"campId"`
	Mode          string             `json:"mode"`
	Status        string             `json:"status"`
	Valid         bool               `json:"valid"`
	Assignments   []PlacementView    `json:"assignments"`
	Unscheduled   []string           `json:"unscheduled,omitempty"`
	Violations    []string           `json:"violations,omitempty"`
	ReferenceGaps []ReferenceGapView `json:"referenceGaps,omitempty"`
	Diff          *DiffResponse      `json:"diff,omitempty"`
	Stats         *SolveStats        `json:"stats,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	ExpiresAt     time.Time          `json:"expiresAt"`
}

// ValidationResponse summarises a validity check.
type ValidationResponse struct {
	CampID         string             `json:"campId"`
	Schedule       string             `json:"schedule"`
	Valid          bool               `json:"valid"`
	SlotCount      int                `json:"slotCount"`
	SessionCount   int                `json:"sessionCount"`
	EventTypeCount int                `json:"eventTypeCount"`
	EventCount     int                `json:"eventCount"`
	ScheduledCount int                `json:"scheduledCount"`
	Violations     []ViolationView    `json:"violations"`
	ReferenceGaps  []ReferenceGapView `json:"referenceGaps,omitempty"`
	EventChanges   int                `json:"eventChanges"`
	SlotChanges    int                `json:"slotChanges"`
}

// ApplyResponse reports what an apply did.
type ApplyResponse struct {
	CampID     string `json:"campId"`
	ProposalID string `json:"proposalId,omitempty"`
	Deleted    int64  `json:"deleted"`
	Created    int    `json:"created"`
}

// EventDebugView explains the options of one event.
type EventDebugView struct {
	EventID            string         `json:"eventId"`
	Title              string         `json:"title"`
	EventTypeID        string         `json:"eventTypeId"`
	PossibleSlots      int            `json:"possibleSlots"`
	UnavailableReasons map[string]int `json:"unavailableReasons"`
	ConflictingEvents  []string       `json:"conflictingEvents"`
}

// ConflictView is one pair of events that may not overlap.
type ConflictView struct {
	EventID      string `json:"eventId"`
	OtherEventID string `json:"otherEventId"`
	Reason       string `json:"reason"`
}

// DebugResponse exposes the model the solver sees.
type DebugResponse struct {
	CampID         string           `json:"campId"`
	SlotCount      int              `json:"slotCount"`
	SessionCount   int              `json:"sessionCount"`
	EventTypeCount int              `json:"eventTypeCount"`
	Events         []EventDebugView `json:"events"`
	Conflicts      []ConflictView   `json:"conflicts"`
}
