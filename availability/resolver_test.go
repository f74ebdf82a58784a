package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"agenda-bot/types"

	"go.uber.org/zap"
)

type fakeAPI struct {
	windows  []types.AvailabilityWindow
	err      error
	calls    int
	gotURI   string
	gotStart string
	gotEnd   string
}

func (f *fakeAPI) GetEventTypeAvailableTimes(_ context.Context, eventTypeURI, startTime, endTime string) ([]types.AvailabilityWindow, error) {
	f.calls++
	f.gotURI = eventTypeURI
	f.gotStart = startTime
	f.gotEnd = endTime
	return f.windows, f.err
}

func localTime(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.Local)
}

func window(hour, minute int) types.AvailabilityWindow {
	start := localTime(hour, minute)
	return types.AvailabilityWindow{StartTime: start, EndTime: start.Add(30 * time.Minute)}
}

func labels(slots []types.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label
	}
	return out
}

func TestResolve_ZeroWindowsIsEmptyNotError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	r := New(api, zap.NewNop().Sugar())

	slots, err := r.Resolve(context.Background(), localTime(0, 0), "https://api.example.com/event_types/ET1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty slot list, got %v", labels(slots))
	}
}

func TestResolve_ExcludesBookedLabels(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{windows: []types.AvailabilityWindow{window(9, 0), window(10, 30), window(13, 30)}}
	r := New(api, zap.NewNop().Sugar())

	booked := []types.ScheduledEvent{
		{URI: "https://api.example.com/scheduled_events/E1", StartTime: localTime(10, 30)},
	}

	slots, err := r.Resolve(context.Background(), localTime(0, 0), "et", booked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := labels(slots)
	want := []string{"09:00", "13:30"}
	if len(got) != len(want) {
		t.Fatalf("expected slots %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected slots %v, got %v", want, got)
		}
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{windows: []types.AvailabilityWindow{window(9, 0), window(10, 30)}}
	r := New(api, zap.NewNop().Sugar())

	booked := []types.ScheduledEvent{{URI: "e", StartTime: localTime(10, 30)}}

	first, err := r.Resolve(context.Background(), localTime(0, 0), "et", booked)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), localTime(0, 0), "et", booked)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || first[0].Label != second[0].Label {
		t.Fatalf("resolution not idempotent: %v vs %v", labels(first), labels(second))
	}
}

func TestResolve_CollapsesDuplicateLabels(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{windows: []types.AvailabilityWindow{window(9, 0), window(9, 0), window(11, 0)}}
	r := New(api, zap.NewNop().Sugar())

	slots, err := r.Resolve(context.Background(), localTime(0, 0), "et", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected duplicate labels to collapse, got %v", labels(slots))
	}
}

func TestResolve_SortsAscending(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{windows: []types.AvailabilityWindow{window(13, 30), window(9, 0), window(10, 30)}}
	r := New(api, zap.NewNop().Sugar())

	slots, err := r.Resolve(context.Background(), localTime(0, 0), "et", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := labels(slots)
	want := []string{"09:00", "10:30", "13:30"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ascending order %v, got %v", want, got)
		}
	}
}

func TestResolve_SelectionIncomplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		day  time.Time
		uri  string
	}{
		{name: "missing_day", day: time.Time{}, uri: "et"},
		{name: "missing_event_type", day: localTime(0, 0), uri: ""},
		{name: "missing_both", day: time.Time{}, uri: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{}
			r := New(api, zap.NewNop().Sugar())

			_, err := r.Resolve(context.Background(), tc.day, tc.uri, nil)
			if !errors.Is(err, ErrSelectionIncomplete) {
				t.Fatalf("expected ErrSelectionIncomplete, got %v", err)
			}
			if api.calls != 0 {
				t.Fatalf("expected no remote call, got %d", api.calls)
			}
		})
	}
}

func TestResolve_RemoteFailure(t *testing.T) {
	t.Parallel()

	remoteErr := errors.New("boom")
	api := &fakeAPI{err: remoteErr}
	r := New(api, zap.NewNop().Sugar())

	slots, err := r.Resolve(context.Background(), localTime(0, 0), "et", nil)
	if !errors.Is(err, remoteErr) {
		t.Fatalf("expected wrapped remote error, got %v", err)
	}
	if errors.Is(err, ErrSelectionIncomplete) {
		t.Fatalf("remote failure must be distinguishable from incomplete selection")
	}
	if slots != nil {
		t.Fatalf("expected nil slots on failure, got %v", labels(slots))
	}
}

func TestResolve_QueriesUTCDayBoundary(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	r := New(api, zap.NewNop().Sugar())

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if _, err := r.Resolve(context.Background(), day, "et", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if api.gotStart != "2025-03-10T00:00:00Z" {
		t.Fatalf("unexpected start boundary: %q", api.gotStart)
	}
	if api.gotEnd != "2025-03-10T23:59:59Z" {
		t.Fatalf("unexpected end boundary: %q", api.gotEnd)
	}
	if api.gotURI != "et" {
		t.Fatalf("unexpected event type uri: %q", api.gotURI)
	}
}
