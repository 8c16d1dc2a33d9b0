package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moyobot/models"
	"moyobot/services/slots"

	"go.uber.org/zap"
)

// DefaultCoordinator implements Coordinator against a calendar collaborator.
// It performs no client-side slot locking: correctness of "no double booking"
// rests on recomputing availability immediately before every attempt and on
// the collaborator rejecting overlapping creates.
type DefaultCoordinator struct {
	Calendar   Calendar
	Normalizer *slots.Normalizer
	ResourceID string
	// Tolerance absorbs formatting and rounding drift in model-proposed
	// start times when matching against live slots.
	Tolerance time.Duration
	Logger    *zap.Logger
}

// LiveSlots recomputes the canonical availability set from the collaborator.
// Results are never cached across turns.
func (c *DefaultCoordinator) LiveSlots(ctx context.Context) ([]models.Slot, error) {
	windows, err := c.Calendar.ListFreeWindows(ctx, c.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
	}
	return c.Normalizer.Normalize(windows), nil
}

// Reserve runs one exclusive reservation attempt for the requested time.
func (c *DefaultCoordinator) Reserve(ctx context.Context, req models.BookingRequest) (*Result, error) {
	live, err := c.LiveSlots(ctx)
	if err != nil {
		return nil, err
	}

	matched, ok := c.match(live, req.Start)
	if !ok {
		c.Logger.Info("booking: no matching slot",
			zap.Time("requested", req.Start),
			zap.Int("liveSlots", len(live)))
		return &Result{Outcome: NoMatchingSlot, LiveSlots: live}, nil
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Consultation - %s", req.Name)
	}

	event, accepted, err := c.createWithRetry(ctx, matched, title, req)
	if err != nil || !accepted {
		if err != nil {
			c.Logger.Warn("booking: create event failed, treating as conflict", zap.Error(err))
		} else {
			c.Logger.Info("booking: slot rejected by calendar", zap.Time("start", matched.Start))
		}
		// The world has changed; re-offer a post-attempt availability set,
		// not the one computed before the attempt.
		fresh, ferr := c.LiveSlots(ctx)
		if ferr != nil {
			c.Logger.Warn("booking: could not refresh slots after conflict", zap.Error(ferr))
			fresh = nil
		}
		return &Result{Outcome: Conflict, Slot: matched, LiveSlots: fresh}, nil
	}

	c.Logger.Info("booking: confirmed",
		zap.Time("start", matched.Start),
		zap.String("attendee", req.AttendeeEmail),
		zap.String("eventId", event.EventID))
	return &Result{Outcome: Confirmed, Event: event, Slot: matched}, nil
}

// match finds the live slot nearest to the requested start, rejecting any
// candidate further away than the tolerance window.
func (c *DefaultCoordinator) match(live []models.Slot, requested time.Time) (models.Slot, bool) {
	var best models.Slot
	bestDiff := c.Tolerance + 1
	for _, s := range live {
		diff := s.Start.Sub(requested)
		if diff < 0 {
			diff = -diff
		}
		if diff <= c.Tolerance && diff < bestDiff {
			best = s
			bestDiff = diff
		}
	}
	return best, bestDiff <= c.Tolerance
}

// createWithRetry issues the reservation attempt, retrying a transport
// failure exactly once with no backoff. A second failure is reported to the
// caller, which treats it as a conflict.
func (c *DefaultCoordinator) createWithRetry(ctx context.Context, slot models.Slot, title string, req models.BookingRequest) (*models.EventDetails, bool, error) {
	description := eventDescription(req)
	event, accepted, err := c.Calendar.CreateEvent(ctx, c.ResourceID, title, slot.Start, slot.End, req.AttendeeEmail, description)
	if err == nil {
		return event, accepted, nil
	}
	c.Logger.Warn("booking: create event transport error, retrying once", zap.Error(err))
	return c.Calendar.CreateEvent(ctx, c.ResourceID, title, slot.Start, slot.End, req.AttendeeEmail, description)
}

func eventDescription(req models.BookingRequest) string {
	lines := []string{
		"Service: " + orNA(req.ServiceName),
		"Company: " + orNA(req.Company),
		"Phone: " + orNA(req.Phone),
		"Details: " + orNA(req.Details),
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
