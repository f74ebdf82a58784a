package types

import (
	"strings"
	"time"
)

// EventType is a bookable meeting template defined on the scheduling provider
// (e.g. "Consulta de 30 minutos").
type EventType struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// AvailabilityWindow is a provider-reported open slot for an event type
// within a queried date range.
type AvailabilityWindow struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Location describes where a scheduled event takes place.
type Location struct {
	Type     string `json:"type"`
	Location string `json:"location"`
}

// ScheduledEvent is a confirmed booking owned by the current user.
type ScheduledEvent struct {
	URI             string    `json:"uri"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	EventTypeURI    string    `json:"event_type"`
	InviteesCounter int       `json:"invitees_counter"`
	Location        Location  `json:"location"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ID returns the bare identifier of the event: the segment after the last "/"
// of its resource URI. The provider's cancel endpoint expects this form.
func (e *ScheduledEvent) ID() string {
	return EventID(e.URI)
}

// EventID extracts the trailing identifier segment from a resource URI.
func EventID(uri string) string {
	return strings.TrimSpace(uri[strings.LastIndex(uri, "/")+1:])
}

// User is the authenticated provider account.
type User struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// TimeSlot is a single bookable time-of-day shown to the user. It is derived
// on every resolution pass and never persisted.
type TimeSlot struct {
	Label    string
	Booked   bool
	Selected bool
}

// FormatTime renders a timestamp as the HH:MM label used everywhere slots are
// matched and displayed. Matching is by this label, not by the underlying
// timestamp, so two windows that format identically collapse to one slot.
func FormatTime(t time.Time) string {
	return t.Local().Format("15:04")
}

// FormatDate renders a timestamp as a localized DD/MM/YYYY date.
func FormatDate(t time.Time) string {
	return t.Local().Format("02/01/2006")
}
