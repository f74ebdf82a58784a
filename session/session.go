package session

import (
	"errors"
	"sync"
	"time"
)

// ErrSelectionIncomplete is returned when a booking is attempted before the
// day, event type and time slot are all chosen.
var ErrSelectionIncomplete = errors.New("session: selection incomplete")

// Selection is a snapshot of a complete (or partial) booking choice.
type Selection struct {
	Day          time.Time
	EventTypeURI string
	SlotLabel    string
}

// Session holds one chat's in-progress booking selection. It is owned by the
// active booking flow and reset when the user navigates away.
type Session struct {
	mu           sync.Mutex
	day          time.Time
	eventTypeURI string
	slotLabel    string
}

func (s *Session) SelectDay(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = day
}

func (s *Session) SelectEventType(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventTypeURI = uri
}

// ToggleSlot selects the given label, or deselects it when it is already the
// current choice. Selecting a new label replaces any prior one; this is a
// single-selection toggle, not a multi-select.
func (s *Session) ToggleSlot(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slotLabel == label {
		s.slotLabel = ""
		return
	}
	s.slotLabel = label
}

// CanBook reports whether day, event type and slot are all set.
func (s *Session) CanBook() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.day.IsZero() && s.eventTypeURI != "" && s.slotLabel != ""
}

// Selection returns the current (possibly partial) choice.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Selection{Day: s.day, EventTypeURI: s.eventTypeURI, SlotLabel: s.slotLabel}
}

// Book validates the selection for the booking action. It fails with
// ErrSelectionIncomplete rather than silently doing nothing, so the UI can
// prompt the user for what is missing.
func (s *Session) Book() (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() || s.eventTypeURI == "" || s.slotLabel == "" {
		return Selection{}, ErrSelectionIncomplete
	}
	return Selection{Day: s.day, EventTypeURI: s.eventTypeURI, SlotLabel: s.slotLabel}, nil
}

// Store keeps one session per chat.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the chat's session, creating it on first use.
func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	if !ok {
		s = &Session{}
		st.sessions[chatID] = s
	}
	return s
}

// Reset drops the chat's session, e.g. when the user leaves the booking flow.
func (st *Store) Reset(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}
