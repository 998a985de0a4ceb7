package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
	"github.com/noah-isme/camp-autoscheduler/internal/scheduler"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
)

type eventTypeReader interface {
	ListAutoschedulable(ctx context.Context) ([]models.EventType, error)
}

type eventSessionReader interface {
	ListByCampAndTypes(ctx context.Context, campID string, eventTypeIDs []string) ([]models.EventSession, error)
}

type locationConflictReader interface {
	ListConflicts(ctx context.Context, campID string) ([]models.LocationConflict, error)
}

type programEventReader interface {
	ListCandidates(ctx context.Context, campID string, eventTypeIDs []string) ([]models.Event, error)
	ListSpeakerLinks(ctx context.Context, campID string) ([]models.EventSpeaker, error)
}

type speakerReader interface {
	ListByCamp(ctx context.Context, campID string) ([]models.Speaker, error)
	ListAvailabilities(ctx context.Context, campID string) ([]models.SpeakerAvailability, error)
	ListEventConflicts(ctx context.Context, campID string) ([]models.SpeakerEventConflict, error)
}

// campSnapshot is the persisted state one autoscheduler run starts from.
type campSnapshot struct {
	catalog    scheduler.Catalog
	placements []scheduler.Placement
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// loadSnapshot reads everything the builder needs for a camp. Manual placements block their
// location and every conflicting one, and autoscheduled placements become the reference.
func (s *AutoScheduleService) loadSnapshot(ctx context.Context, campID string) (*campSnapshot, error) {
	types, err := s.eventTypes.ListAutoschedulable(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load event types")
	}
	typeIDs := lo.Map(types, func(t models.EventType, _ int) string { return t.ID })

	sessions, err := s.sessions.ListByCampAndTypes(ctx, campID, typeIDs)
	if err != nil {
		return nil, internalError(err, "failed to load event sessions")
	}
	locationConflicts, err := s.locations.ListConflicts(ctx, campID)
	if err != nil {
		return nil, internalError(err, "failed to load location conflicts")
	}
	events, err := s.events.ListCandidates(ctx, campID, typeIDs)
	if err != nil {
		return nil, internalError(err, "failed to load events")
	}
	links, err := s.events.ListSpeakerLinks(ctx, campID)
	if err != nil {
		return nil, internalError(err, "failed to load event speakers")
	}
	speakers, err := s.speakers.ListByCamp(ctx, campID)
	if err != nil {
		return nil, internalError(err, "failed to load speakers")
	}
	availabilities, err := s.speakers.ListAvailabilities(ctx, campID)
	if err != nil {
		return nil, internalError(err, "failed to load speaker availability")
	}
	attending, err := s.speakers.ListEventConflicts(ctx, campID)
	if err != nil {
		return nil, internalError(err, "failed to load speaker event conflicts")
	}
	placed, err := s.slots.ListByCamp(ctx, campID)
	if err != nil {
		return nil, internalError(err, "failed to load event slots")
	}

	speakersByEvent := make(map[string][]string)
	for _, link := range links {
		speakersByEvent[link.EventID] = append(speakersByEvent[link.EventID], link.SpeakerID)
	}

	neighbours := make(map[string]map[string]bool)
	link := func(a, b string) {
		if neighbours[a] == nil {
			neighbours[a] = make(map[string]bool)
		}
		neighbours[a][b] = true
	}
	for _, conflict := range locationConflicts {
		link(conflict.LocationID, conflict.ConflictLocationID)
		link(conflict.ConflictLocationID, conflict.LocationID)
	}

	manual, auto := lo.FilterReject(placed, func(slot models.EventSlot, _ int) bool { return !slot.Autoscheduled })

	catalog := scheduler.Catalog{
		CampID:     campID,
		EventTypes: typeIDs,
		Sessions:   make([]scheduler.Session, 0, len(sessions)),
		Events:     make([]scheduler.Event, 0, len(events)),
		Speakers:   make(map[string]scheduler.Speaker, len(speakers)),
		Fixed:      make([]scheduler.FixedPlacement, 0, len(manual)),
	}

	for _, session := range sessions {
		when := scheduler.TimeRange{Start: session.StartsAt, End: session.EndsAt}
		var busy []scheduler.TimeRange
		for _, slot := range manual {
			if slot.EventLocationID != session.EventLocationID && !neighbours[session.EventLocationID][slot.EventLocationID] {
				continue
			}
			placedAt := scheduler.TimeRange{Start: slot.StartsAt, End: slot.EndsAt}
			if placedAt.Overlaps(when) {
				busy = append(busy, placedAt)
			}
		}
		catalog.Sessions = append(catalog.Sessions, scheduler.Session{
			ID:                   session.ID,
			EventTypeID:          session.EventTypeID,
			EventTypeName:        session.EventTypeName,
			LocationID:           session.EventLocationID,
			LocationName:         session.LocationName,
			When:                 when,
			EventDurationMinutes: session.EventDurationMinutes,
			Capacity:             session.LocationCapacity,
			Busy:                 busy,
		})
	}

	for _, event := range events {
		catalog.Events = append(catalog.Events, scheduler.Event{
			ID:              event.ID,
			EventTypeID:     event.EventTypeID,
			Title:           event.Title,
			DurationMinutes: event.DurationMinutes,
			Demand:          event.Demand,
			SpeakerIDs:      speakersByEvent[event.ID],
		})
	}

	windows := lo.GroupBy(availabilities, func(a models.SpeakerAvailability) string { return a.SpeakerID })
	wishes := lo.GroupBy(attending, func(c models.SpeakerEventConflict) string { return c.SpeakerID })
	for _, speaker := range speakers {
		available := make([]scheduler.TimeRange, 0, len(windows[speaker.ID]))
		for _, window := range windows[speaker.ID] {
			if window.Available {
				available = append(available, scheduler.TimeRange{Start: window.StartsAt, End: window.EndsAt})
			}
		}
		catalog.Speakers[speaker.ID] = scheduler.Speaker{
			ID:        speaker.ID,
			Name:      speaker.Name,
			Available: available,
			Attending: lo.Map(wishes[speaker.ID], func(c models.SpeakerEventConflict, _ int) string { return c.EventID }),
		}
	}

	for _, slot := range manual {
		catalog.Fixed = append(catalog.Fixed, scheduler.FixedPlacement{
			EventID:    slot.EventID,
			SpeakerIDs: speakersByEvent[slot.EventID],
			When:       scheduler.TimeRange{Start: slot.StartsAt, End: slot.EndsAt},
		})
	}

	placements := make([]scheduler.Placement, 0, len(auto))
	for _, slot := range auto {
		placements = append(placements, scheduler.Placement{
			ID:         slot.ID,
			EventID:    slot.EventID,
			SessionID:  lo.FromPtr(slot.EventSessionID),
			LocationID: slot.EventLocationID,
			StartsAt:   slot.StartsAt,
			EndsAt:     slot.EndsAt,
		})
	}

	return &campSnapshot{catalog: catalog, placements: placements}, nil
}
