package models

import "time"

// EventType groups events sharing a format, such as talks or workshops.
type EventType struct {
	ID                    string `db:"id" json:"id"`
	Name                  string `db:"name" json:"name"`
	SupportAutoscheduling bool   `db:"support_autoscheduling" json:"support_autoscheduling"`
	EventDurationMinutes  int    `db:"event_duration_minutes" json:"event_duration_minutes"`
}

// LocationConflict states that two locations cannot host events at the same time.
type LocationConflict struct {
	LocationID         string `db:"location_id" json:"location_id"`
	ConflictLocationID string `db:"conflict_location_id" json:"conflict_location_id"`
}

// EventSession is a window in a location reserved for one event type.
type EventSession struct {
	ID                   string    `db:"id" json:"id"`
	CampID               string    `db:"camp_id" json:"camp_id"`
	EventTypeID          string    `db:"event_type_id" json:"event_type_id"`
	EventTypeName        string    `db:"event_type_name" json:"event_type_name"`
	EventLocationID      string    `db:"event_location_id" json:"event_location_id"`
	LocationName         string    `db:"location_name" json:"location_name"`
	LocationCapacity     int       `db:"location_capacity" json:"location_capacity"`
	StartsAt             time.Time `db:"starts_at" json:"starts_at"`
	EndsAt               time.Time `db:"ends_at" json:"ends_at"`
	EventDurationMinutes int       `db:"event_duration_minutes" json:"event_duration_minutes"`
}

// Event is an entry of the camp program.
type Event struct {
	ID              string    `db:"id" json:"id"`
	CampID          string    `db:"camp_id" json:"camp_id"`
	EventTypeID     string    `db:"event_type_id" json:"event_type_id"`
	Title           string    `db:"title" json:"title"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Demand          int       `db:"demand" json:"demand"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// EventSpeaker links an event to a speaker presenting it.
type EventSpeaker struct {
	EventID   string `db:"event_id" json:"event_id"`
	SpeakerID string `db:"speaker_id" json:"speaker_id"`
}

// Speaker presents one or more events.
type Speaker struct {
	ID     string `db:"id" json:"id"`
	CampID string `db:"camp_id" json:"camp_id"`
	Name   string `db:"name" json:"name"`
}

// SpeakerAvailability is a declared window. Only rows with Available set count as free time.
type SpeakerAvailability struct {
	ID        string    `db:"id" json:"id"`
	SpeakerID string    `db:"speaker_id" json:"speaker_id"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Available bool      `db:"available" json:"available"`
}

// SpeakerEventConflict records that a speaker wants to attend an event.
type SpeakerEventConflict struct {
	SpeakerID string `db:"speaker_id" json:"speaker_id"`
	EventID   string `db:"event_id" json:"event_id"`
}

// EventSlot is a persisted placement of an event in a location and time range.
type EventSlot struct {
	ID              string    `db:"id" json:"id"`
	CampID          string    `db:"camp_id" json:"camp_id"`
	EventSessionID  *string   `db:"event_session_id" json:"event_session_id,omitempty"`
	EventLocationID string    `db:"event_location_id" json:"event_location_id"`
	EventID         string    `db:"event_id" json:"event_id"`
	StartsAt        time.Time `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time `db:"ends_at" json:"ends_at"`
	Autoscheduled   bool      `db:"autoscheduled" json:"autoscheduled"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
