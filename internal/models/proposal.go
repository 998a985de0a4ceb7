package models

import (
	"time"

	"github.com/noah-isme/camp-autoscheduler/internal/scheduler"
)

// ProposalStatus represents lifecycle phases of a computed program.
type ProposalStatus string

const (
	ProposalStatusValid    ProposalStatus = "VALID"
	ProposalStatusInvalid  ProposalStatus = "INVALID"
	ProposalStatusApplied  ProposalStatus = "APPLIED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// ScheduleMode selects which schedule an autoscheduler run works on.
type ScheduleMode string

const (
	// ScheduleModeCurrent is the program as currently persisted.
	ScheduleModeCurrent ScheduleMode = "current"
	// ScheduleModeSimilar is recomputed with as few changes to the current program as possible.
	ScheduleModeSimilar ScheduleMode = "similar"
	// ScheduleModeNew is recomputed from scratch.
	ScheduleModeNew ScheduleMode = "new"
)

// ProposalAssignment is one placement of a proposal, keyed by stable identifiers so it can be
// resolved against a freshly built problem later.
type ProposalAssignment struct {
	EventID      string    `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	SessionID    string    `json:"session_id"`
	LocationID   string    `json:"location_id"`
	LocationName string    `json:"location_name"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
}

// Proposal is a computed program awaiting an operator decision.
type Proposal struct {
	ID          string                      `json:"id"`
	CampID      string                      `json:"camp_id"`
	Mode        ScheduleMode                `json:"mode"`
	Objective   scheduler.Objective         `json:"objective"`
	Status      ProposalStatus              `json:"status"`
	Assignments []ProposalAssignment        `json:"assignments"`
	Unscheduled []string                    `json:"unscheduled,omitempty"`
	Violations  []string                    `json:"violations,omitempty"`
	Stats       scheduler.Stats             `json:"stats"`
	Changes     int                         `json:"changes"`
	CreatedAt   time.Time                   `json:"created_at"`
	ExpiresAt   time.Time                   `json:"expires_at"`
	AppliedAt   *time.Time                  `json:"applied_at,omitempty"`
	CreatedBy   string                      `json:"created_by,omitempty"`
	Constraints scheduler.ConstraintOptions `json:"constraints"`
}

// Expired reports whether the proposal is past its expiry.
func (p Proposal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
