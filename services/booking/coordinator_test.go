package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moyobot/models"
	"moyobot/services/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCalendar is an in-memory calendar collaborator. It hands out free
// windows and accepts each window exactly once, like the real resource.
type fakeCalendar struct {
	mu          sync.Mutex
	windows     []slots.Window
	listErr     error
	createErrs  []error
	createCalls int
	booked      map[time.Time]bool
}

func (f *fakeCalendar) ListFreeWindows(ctx context.Context, resourceID string) ([]slots.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]slots.Window, 0, len(f.windows))
	for _, w := range f.windows {
		if f.booked != nil && f.booked[w.Start] {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, resourceID, title string, start, end time.Time, attendeeEmail, description string) (*models.EventDetails, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.createCalls
	f.createCalls++
	if call < len(f.createErrs) && f.createErrs[call] != nil {
		return nil, false, f.createErrs[call]
	}
	if f.booked == nil {
		f.booked = make(map[time.Time]bool)
	}
	if f.booked[start] {
		return nil, false, nil
	}
	f.booked[start] = true
	return &models.EventDetails{
		EventID: "evt-1",
		Title:   title,
		Start:   start,
		End:     end,
	}, true, nil
}

func testCoordinator(t *testing.T, cal Calendar, now time.Time) *DefaultCoordinator {
	t.Helper()
	n, err := slots.NewNormalizerAt("Africa/Kigali", func() time.Time { return now })
	require.NoError(t, err)
	return &DefaultCoordinator{
		Calendar:   cal,
		Normalizer: n,
		ResourceID: "primary",
		Tolerance:  5 * time.Minute,
		Logger:     zap.NewNop(),
	}
}

func kigali(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Kigali")
	require.NoError(t, err)
	return loc
}

func TestReserveConfirmsMatchingSlot(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	cal := &fakeCalendar{windows: []slots.Window{{Start: slotStart, End: slotStart.Add(2 * time.Hour)}}}
	c := testCoordinator(t, cal, now)

	res, err := c.Reserve(context.Background(), models.BookingRequest{
		Start:         slotStart,
		AttendeeEmail: "jo@acme.com",
		Name:          "Jo",
	})

	require.NoError(t, err)
	assert.Equal(t, Confirmed, res.Outcome)
	require.NotNil(t, res.Event)
	assert.True(t, res.Slot.Start.Equal(slotStart))
	assert.Equal(t, "Consultation - Jo", res.Event.Title)
}

func TestReserveMatchesWithinTolerance(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	cal := &fakeCalendar{windows: []slots.Window{{Start: slotStart, End: slotStart.Add(time.Hour)}}}
	c := testCoordinator(t, cal, now)

	// Model proposed 10:03, live slot is 10:00.
	res, err := c.Reserve(context.Background(), models.BookingRequest{
		Start:         slotStart.Add(3 * time.Minute),
		AttendeeEmail: "jo@acme.com",
	})

	require.NoError(t, err)
	assert.Equal(t, Confirmed, res.Outcome)
	assert.True(t, res.Slot.Start.Equal(slotStart), "reservation snaps to the live slot")
}

func TestReserveRejectsOutsideTolerance(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	cal := &fakeCalendar{windows: []slots.Window{{Start: slotStart, End: slotStart.Add(time.Hour)}}}
	c := testCoordinator(t, cal, now)

	res, err := c.Reserve(context.Background(), models.BookingRequest{
		Start:         slotStart.Add(20 * time.Minute),
		AttendeeEmail: "jo@acme.com",
	})

	require.NoError(t, err)
	assert.Equal(t, NoMatchingSlot, res.Outcome)
	assert.Len(t, res.LiveSlots, 1, "live availability is carried for re-offering")
	assert.Zero(t, cal.createCalls, "no create attempt without a match")
}

func TestReserveConflictCarriesFreshSlots(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	taken := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	open := time.Date(2026, 9, 1, 14, 0, 0, 0, loc)
	cal := &fakeCalendar{
		windows: []slots.Window{
			{Start: taken, End: taken.Add(time.Hour)},
			{Start: open, End: open.Add(time.Hour)},
		},
		booked: map[time.Time]bool{},
	}
	c := testCoordinator(t, cal, now)

	// Someone else grabs the slot between listing and creating.
	first, err := c.Reserve(context.Background(), models.BookingRequest{Start: taken, AttendeeEmail: "other@acme.com"})
	require.NoError(t, err)
	require.Equal(t, Confirmed, first.Outcome)

	res, err := c.Reserve(context.Background(), models.BookingRequest{Start: taken, AttendeeEmail: "jo@acme.com"})

	require.NoError(t, err)
	assert.Equal(t, NoMatchingSlot, res.Outcome, "taken slot no longer appears live")
	require.Len(t, res.LiveSlots, 1)
	assert.True(t, res.LiveSlots[0].Start.Equal(open))
}

func TestReserveRetriesTransportErrorOnce(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	cal := &fakeCalendar{
		windows:    []slots.Window{{Start: slotStart, End: slotStart.Add(time.Hour)}},
		createErrs: []error{errors.New("transient network error")},
	}
	c := testCoordinator(t, cal, now)

	res, err := c.Reserve(context.Background(), models.BookingRequest{Start: slotStart, AttendeeEmail: "jo@acme.com"})

	require.NoError(t, err)
	assert.Equal(t, Confirmed, res.Outcome)
	assert.Equal(t, 2, cal.createCalls)
}

func TestReserveSecondTransportFailureIsConflict(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	transient := errors.New("transient network error")
	cal := &fakeCalendar{
		windows:    []slots.Window{{Start: slotStart, End: slotStart.Add(time.Hour)}},
		createErrs: []error{transient, transient},
	}
	c := testCoordinator(t, cal, now)

	res, err := c.Reserve(context.Background(), models.BookingRequest{Start: slotStart, AttendeeEmail: "jo@acme.com"})

	require.NoError(t, err)
	assert.Equal(t, Conflict, res.Outcome)
	assert.Equal(t, 2, cal.createCalls, "exactly one retry")
	assert.NotEmpty(t, res.LiveSlots, "fresh availability is carried on conflict")
}

func TestReserveListFailureSurfacesError(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	cal := &fakeCalendar{listErr: errors.New("calendar down")}
	c := testCoordinator(t, cal, now)

	_, err := c.Reserve(context.Background(), models.BookingRequest{Start: now, AttendeeEmail: "jo@acme.com"})

	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}

func TestConcurrentReservesYieldOneConfirmation(t *testing.T) {
	loc := kigali(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	cal := &fakeCalendar{windows: []slots.Window{{Start: slotStart, End: slotStart.Add(time.Hour)}}}
	c := testCoordinator(t, cal, now)

	const attempts = 8
	outcomes := make(chan Outcome, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Reserve(context.Background(), models.BookingRequest{
				Start:         slotStart,
				AttendeeEmail: "jo@acme.com",
			})
			if err == nil {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	confirmed := 0
	for o := range outcomes {
		if o == Confirmed {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed, "the slot can be won exactly once")
}
