package scheduler

import (
	"time"

	"go.uber.org/zap"
)

// Placement is a persisted automatic placement as read back from storage.
type Placement struct {
	ID         string
	EventID    string
	SessionID  string
	LocationID string
	StartsAt   time.Time
	EndsAt     time.Time
}

// GapReason explains why a placement could not be mapped onto the problem.
type GapReason string

const (
	GapUnknownEvent GapReason = "event_not_schedulable"
	GapNoSlot       GapReason = "no_matching_slot"
)

// ReferenceGap is a placement left out of a reference schedule.
type ReferenceGap struct {
	Placement Placement `json:"placement"`
	Reason    GapReason `json:"reason"`
}

// BuildReference maps persisted placements onto the problem's slots. A placement matches
// the slot of the event's type starting at the same time in the same location. Placements
// that do not match are skipped and returned as gaps. The result is not validated.
func (p *Problem) BuildReference(placements []Placement, logger *zap.Logger) (Schedule, []ReferenceGap) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		schedule Schedule
		gaps     []ReferenceGap
	)
	for _, placement := range placements {
		item, ok := p.ItemByEvent(placement.EventID)
		if !ok {
			gaps = append(gaps, ReferenceGap{Placement: placement, Reason: GapUnknownEvent})
			logger.Warn("autoscheduler reference placement skipped",
				zap.String("placement_id", placement.ID),
				zap.String("event_id", placement.EventID),
				zap.String("reason", string(GapUnknownEvent)),
			)
			continue
		}
		slot, ok := p.FindSlot(item.EventTypeID, placement.SessionID, placement.LocationID, placement.StartsAt)
		if !ok {
			gaps = append(gaps, ReferenceGap{Placement: placement, Reason: GapNoSlot})
			logger.Warn("autoscheduler reference placement skipped",
				zap.String("placement_id", placement.ID),
				zap.String("event_id", placement.EventID),
				zap.String("location_id", placement.LocationID),
				zap.Time("starts_at", placement.StartsAt),
				zap.String("reason", string(GapNoSlot)),
			)
			continue
		}
		schedule = append(schedule, Assignment{Item: item.Index, Slot: slot.Index})
	}
	return p.Sorted(schedule), gaps
}
