package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agenda-bot/types"

	"go.uber.org/zap"
)

// cancelReason is sent to the provider with every user-initiated cancel.
const cancelReason = "Cancelado pelo usuário"

var (
	// ErrNothingSelected is returned when a cancel is attempted without a
	// booking identifier. The remote API is not called.
	ErrNothingSelected = errors.New("bookings: nothing selected")
	// ErrNotFound is returned when the identifier matches none of the
	// user's known bookings.
	ErrNotFound = errors.New("bookings: event not found")
)

// API is the slice of the scheduling client the manager needs.
type API interface {
	GetScheduledEvents(ctx context.Context, userURI string) ([]types.ScheduledEvent, error)
	CancelEvent(ctx context.Context, eventID, reason string) error
}

// Store persists the per-chat snapshot of the user's bookings.
type Store interface {
	SaveEvents(ctx context.Context, chatID int64, events []types.ScheduledEvent) error
	GetEvents(ctx context.Context, chatID int64) ([]types.ScheduledEvent, error)
}

// Manager owns the local view of the user's scheduled events: it refreshes
// the snapshot from the provider and removes entries optimistically when a
// cancel succeeds.
type Manager struct {
	api   API
	store Store
	log   *zap.SugaredLogger
}

func New(api API, store Store, log *zap.SugaredLogger) *Manager {
	return &Manager{api: api, store: store, log: log}
}

// Refresh fetches the user's bookings and replaces the chat's snapshot.
func (m *Manager) Refresh(ctx context.Context, chatID int64, userURI string) ([]types.ScheduledEvent, error) {
	events, err := m.api.GetScheduledEvents(ctx, userURI)
	if err != nil {
		return nil, fmt.Errorf("fetch scheduled events: %w", err)
	}
	if err := m.store.SaveEvents(ctx, chatID, events); err != nil {
		m.log.Warnw("failed to save events snapshot", "chat_id", chatID, "err", err)
	}
	return events, nil
}

// Cached returns the chat's last known snapshot without a remote call.
func (m *Manager) Cached(ctx context.Context, chatID int64) ([]types.ScheduledEvent, error) {
	return m.store.GetEvents(ctx, chatID)
}

// Cancel cancels the booking identified by its resource URI. The provider
// expects the bare identifier, so the trailing URI segment is extracted
// first. On success exactly the matching entry is removed from the snapshot;
// on failure the snapshot is left untouched and no retry is attempted.
func (m *Manager) Cancel(ctx context.Context, chatID int64, bookingURI string) error {
	if strings.TrimSpace(bookingURI) == "" {
		return ErrNothingSelected
	}

	events, err := m.store.GetEvents(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load events snapshot: %w", err)
	}

	idx := -1
	for i, ev := range events {
		if ev.URI == bookingURI {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	eventID := types.EventID(bookingURI)
	if err := m.api.CancelEvent(ctx, eventID, cancelReason); err != nil {
		return fmt.Errorf("cancel event %s: %w", eventID, err)
	}

	remaining := make([]types.ScheduledEvent, 0, len(events)-1)
	remaining = append(remaining, events[:idx]...)
	remaining = append(remaining, events[idx+1:]...)
	if err := m.store.SaveEvents(ctx, chatID, remaining); err != nil {
		m.log.Warnw("failed to save events snapshot after cancel", "chat_id", chatID, "err", err)
	}

	m.log.Infow("booking cancelled", "chat_id", chatID, "event_id", eventID)
	return nil
}
