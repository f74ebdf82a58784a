package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"agenda-bot/types"

	"go.uber.org/zap"
)

// ErrSelectionIncomplete is returned when the resolver is asked to run
// without a day or event type. No remote call is made in that case, so the
// UI can prompt for the missing selection instead of showing a load failure.
var ErrSelectionIncomplete = errors.New("availability: selection incomplete")

// API is the slice of the scheduling client the resolver needs.
type API interface {
	GetEventTypeAvailableTimes(ctx context.Context, eventTypeURI, startTime, endTime string) ([]types.AvailabilityWindow, error)
}

// Resolver turns (day, event type, already-booked events) into the ordered
// list of bookable time slots for that day.
type Resolver struct {
	api API
	log *zap.SugaredLogger
}

func New(api API, log *zap.SugaredLogger) *Resolver {
	return &Resolver{api: api, log: log}
}

// Resolve fetches the open windows of eventTypeURI within the UTC boundary of
// day and subtracts the times already taken by the user's bookings. Matching
// is by formatted HH:MM label; duplicate labels collapse to one slot. The
// result is ascending by time of day. An empty result with a nil error means
// the day genuinely has no open slots.
func (r *Resolver) Resolve(ctx context.Context, day time.Time, eventTypeURI string, booked []types.ScheduledEvent) ([]types.TimeSlot, error) {
	if day.IsZero() || eventTypeURI == "" {
		return nil, ErrSelectionIncomplete
	}

	dateStr := day.Format("2006-01-02")
	startTime := dateStr + "T00:00:00Z"
	endTime := dateStr + "T23:59:59Z"

	windows, err := r.api.GetEventTypeAvailableTimes(ctx, eventTypeURI, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("fetch available times: %w", err)
	}

	takenLabels := make(map[string]bool, len(booked))
	for _, ev := range booked {
		takenLabels[types.FormatTime(ev.StartTime)] = true
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].StartTime.Before(windows[j].StartTime)
	})

	seen := make(map[string]bool, len(windows))
	slots := make([]types.TimeSlot, 0, len(windows))
	for _, w := range windows {
		label := types.FormatTime(w.StartTime)
		if seen[label] {
			continue
		}
		seen[label] = true
		if takenLabels[label] {
			continue
		}
		slots = append(slots, types.TimeSlot{Label: label})
	}

	r.log.Debugw("availability resolved", "date", dateStr, "windows", len(windows), "slots", len(slots))
	return slots, nil
}
