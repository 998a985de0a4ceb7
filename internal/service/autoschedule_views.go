package service

import (
	"sort"

	"github.com/samber/lo"

	"github.com/noah-isme/camp-autoscheduler/internal/dto"
	"github.com/noah-isme/camp-autoscheduler/internal/models"
	"github.com/noah-isme/camp-autoscheduler/internal/scheduler"
	"github.com/noah-isme/camp-autoscheduler/pkg/export"
)

func proposalAssignments(problem *scheduler.Problem, schedule scheduler.Schedule) []models.ProposalAssignment {
	out := make([]models.ProposalAssignment, 0, len(schedule))
	for _, a := range schedule {
		item, slot := problem.Items[a.Item], problem.Slots[a.Slot]
		out = append(out, models.ProposalAssignment{
			EventID:      item.EventID,
			EventTitle:   item.Title,
			SessionID:    slot.SessionID,
			LocationID:   slot.LocationID,
			LocationName: slot.LocationName,
			StartsAt:     slot.StartsAt,
			EndsAt:       slot.EndsAt(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].LocationName < out[j].LocationName
	})
	return out
}

func unscheduledEvents(problem *scheduler.Problem, schedule scheduler.Schedule) []string {
	placed := schedule.SlotsByItem()
	var out []string
	for _, item := range problem.Items {
		if _, ok := placed[item.Index]; !ok {
			out = append(out, item.EventID)
		}
	}
	return out
}

// resolveAssignments maps stored assignments onto a freshly built problem. Events whose
// placement cannot be found again are returned as stale.
func resolveAssignments(problem *scheduler.Problem, assignments []models.ProposalAssignment) (scheduler.Schedule, []string) {
	var (
		schedule scheduler.Schedule
		stale    []string
	)
	for _, a := range assignments {
		item, ok := problem.ItemByEvent(a.EventID)
		if !ok {
			stale = append(stale, a.EventID)
			continue
		}
		slot, ok := problem.FindSlot(item.EventTypeID, a.SessionID, a.LocationID, a.StartsAt)
		if !ok || slot.SessionID != a.SessionID {
			stale = append(stale, a.EventID)
			continue
		}
		schedule = append(schedule, scheduler.Assignment{Item: item.Index, Slot: slot.Index})
	}
	return problem.Sorted(schedule), stale
}

func placementViews(assignments []models.ProposalAssignment) []dto.PlacementView {
	return lo.Map(assignments, func(a models.ProposalAssignment, _ int) dto.PlacementView {
		return dto.PlacementView{
			EventID:      a.EventID,
			EventTitle:   a.EventTitle,
			SessionID:    a.SessionID,
			LocationID:   a.LocationID,
			LocationName: a.LocationName,
			StartsAt:     a.StartsAt,
			EndsAt:       a.EndsAt,
		}
	})
}

func proposalResponse(p models.Proposal) *dto.ProposalResponse {
	return &dto.ProposalResponse{
		ProposalID:  p.ID,
		CampID:      p.CampID,
		Mode:        string(p.Mode),
		Status:      string(p.Status),
		Valid:       len(p.Violations) == 0,
		Assignments: placementViews(p.Assignments),
		Unscheduled: p.Unscheduled,
		Violations:  p.Violations,
		Stats: &dto.SolveStats{
			Objective:   string(p.Stats.Objective),
			Cost:        p.Stats.Cost,
			Unscheduled: p.Stats.Unscheduled,
			Nodes:       p.Stats.Nodes,
			Optimal:     p.Stats.Optimal,
			DurationMs:  p.Stats.Duration.Milliseconds(),
		},
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
}

func referenceGapViews(gaps []scheduler.ReferenceGap) []dto.ReferenceGapView {
	return lo.Map(gaps, func(g scheduler.ReferenceGap, _ int) dto.ReferenceGapView {
		return dto.ReferenceGapView{
			PlacementID: g.Placement.ID,
			EventID:     g.Placement.EventID,
			LocationID:  g.Placement.LocationID,
			StartsAt:    g.Placement.StartsAt,
			Reason:      string(g.Reason),
		}
	})
}

func slotView(slot *scheduler.Slot) *dto.SlotView {
	if slot == nil {
		return nil
	}
	return &dto.SlotView{
		SessionID:    slot.SessionID,
		LocationID:   slot.LocationID,
		LocationName: slot.LocationName,
		StartsAt:     slot.StartsAt,
		Duration:     slot.Duration,
	}
}

func eventView(item *scheduler.Item) *dto.EventView {
	if item == nil {
		return nil
	}
	return &dto.EventView{EventID: item.EventID, Title: item.Title}
}

func diffResponse(diff scheduler.Difference) *dto.DiffResponse {
	resp := &dto.DiffResponse{
		EventDiffs: make([]dto.EventDiffView, 0, len(diff.EventDiffs)),
		SlotDiffs:  make([]dto.SlotDiffView, 0, len(diff.SlotDiffs)),
	}
	for _, d := range diff.EventDiffs {
		item := d.Item
		resp.EventDiffs = append(resp.EventDiffs, dto.EventDiffView{
			Event: *eventView(&item),
			Old:   slotView(d.Old),
			New:   slotView(d.New),
		})
	}
	for _, d := range diff.SlotDiffs {
		slot := d.Slot
		resp.SlotDiffs = append(resp.SlotDiffs, dto.SlotDiffView{
			Slot: *slotView(&slot),
			Old:  eventView(d.Old),
			New:  eventView(d.New),
		})
	}
	return resp
}

func violationViews(problem *scheduler.Problem, violations []scheduler.Violation) []dto.ViolationView {
	out := make([]dto.ViolationView, 0, len(violations))
	for _, v := range violations {
		var events []string
		for _, idx := range v.Items {
			if idx >= 0 && idx < len(problem.Items) {
				events = append(events, problem.Items[idx].EventID)
			}
		}
		out = append(out, dto.ViolationView{Kind: string(v.Kind), Message: v.Message, EventIDs: events})
	}
	return out
}

// reasonTooShort counts slots shorter than the event in debug output.
const reasonTooShort = "slot_too_short"

func debugResponse(campID string, problem *scheduler.Problem) *dto.DebugResponse {
	resp := &dto.DebugResponse{
		CampID:         campID,
		SlotCount:      len(problem.Slots),
		SessionCount:   problem.SessionCount,
		EventTypeCount: problem.EventTypeCount,
		Events:         make([]dto.EventDebugView, 0, len(problem.Items)),
		Conflicts:      []dto.ConflictView{},
	}

	conflicting := make(map[int][]string)
	for _, c := range problem.Unavailability.Conflicts() {
		item, other := problem.Items[c.Item], problem.Items[c.Other]
		conflicting[c.Item] = append(conflicting[c.Item], other.EventID)
		conflicting[c.Other] = append(conflicting[c.Other], item.EventID)
		resp.Conflicts = append(resp.Conflicts, dto.ConflictView{EventID: item.EventID, OtherEventID: other.EventID, Reason: c.Reason})
	}

	for _, item := range problem.Items {
		reasons := make(map[string]int)
		for _, slot := range problem.Slots {
			if reason, blocked := problem.Unavailability.SlotReason(item.Index, slot.Index); blocked {
				reasons[string(reason.Kind)]++
				continue
			}
			if !item.Fits(slot) {
				reasons[reasonTooShort]++
			}
		}
		others := lo.Uniq(conflicting[item.Index])
		sort.Strings(others)
		resp.Events = append(resp.Events, dto.EventDebugView{
			EventID:            item.EventID,
			Title:              item.Title,
			EventTypeID:        item.EventTypeID,
			PossibleSlots:      len(problem.PossibleSlots(item.Index)),
			UnavailableReasons: reasons,
			ConflictingEvents:  others,
		})
	}
	return resp
}

const exportTimeLayout = "15:04"

func programDataset(p models.Proposal) export.Dataset {
	data := export.Dataset{
		Title:   "Program proposal " + p.ID,
		Headers: []string{"Day", "Start", "End", "Location", "Event"},
		GroupBy: "Day",
		Rows:    make([]map[string]string, 0, len(p.Assignments)),
	}
	for _, a := range p.Assignments {
		data.Rows = append(data.Rows, map[string]string{
			"Day":      a.StartsAt.Format("Monday 2006-01-02"),
			"Start":    a.StartsAt.Format(exportTimeLayout),
			"End":      a.EndsAt.Format(exportTimeLayout),
			"Location": a.LocationName,
			"Event":    a.EventTitle,
		})
	}
	return data
}
