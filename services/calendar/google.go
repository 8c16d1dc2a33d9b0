package calendar

import (
	"context"
	"fmt"
	"time"

	"moyobot/models"
	"moyobot/services/slots"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Business hours offered for consultations, in the display timezone.
const (
	dayStartHour = 9
	dayEndHour   = 17
)

// GoogleCalendar implements the calendar collaborator contract on top of the
// Google Calendar API: free/busy queries for availability and event inserts
// for reservations. An insert is rejected (accepted=false) when the target
// window shows busy immediately before the insert, which is how an already
// taken slot surfaces.
type GoogleCalendar struct {
	svc         *gcal.Service
	loc         *time.Location
	horizonDays int
	logger      *zap.Logger
}

func NewGoogleCalendar(ctx context.Context, credentialsFile, timezone string, horizonDays int, logger *zap.Logger) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &GoogleCalendar{svc: svc, loc: loc, horizonDays: horizonDays, logger: logger}, nil
}

// ListFreeWindows returns the resource's free windows over the availability
// horizon: business hours on weekdays minus the busy periods reported by a
// free/busy query.
func (g *GoogleCalendar) ListFreeWindows(ctx context.Context, resourceID string) ([]slots.Window, error) {
	now := time.Now().In(g.loc)
	horizonEnd := now.AddDate(0, 0, g.horizonDays)

	resp, err := g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: now.Format(time.RFC3339),
		TimeMax: horizonEnd.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: resourceID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	var busy []slots.Window
	if cal, ok := resp.Calendars[resourceID]; ok {
		for _, b := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, b.Start)
			end, err2 := time.Parse(time.RFC3339, b.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, slots.Window{Start: start, End: end})
		}
	}

	var free []slots.Window
	for day := 0; day <= g.horizonDays; day++ {
		date := now.AddDate(0, 0, day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		open := time.Date(date.Year(), date.Month(), date.Day(), dayStartHour, 0, 0, 0, g.loc)
		closing := time.Date(date.Year(), date.Month(), date.Day(), dayEndHour, 0, 0, 0, g.loc)
		if closing.Before(now) {
			continue
		}
		free = append(free, subtractBusy(slots.Window{Start: open, End: closing}, busy)...)
	}
	return free, nil
}

// CreateEvent attempts the reservation. The pre-insert free/busy check is
// what turns "someone else already took it" into accepted=false.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, resourceID, title string, start, end time.Time, attendeeEmail, description string) (*models.EventDetails, bool, error) {
	free, err := g.isWindowFree(ctx, resourceID, start, end)
	if err != nil {
		return nil, false, err
	}
	if !free {
		g.logger.Info("calendar: window no longer free", zap.Time("start", start))
		return nil, false, nil
	}

	event := &gcal.Event{
		Summary:     title,
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
		Attendees:   []*gcal.EventAttendee{{Email: attendeeEmail}},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId: uuid.New().String(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}

	created, err := g.svc.Events.Insert(resourceID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).Do()
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}

	return &models.EventDetails{
		EventID:     created.Id,
		Title:       title,
		Start:       start,
		End:         end,
		MeetingLink: created.HangoutLink,
	}, true, nil
}

func (g *GoogleCalendar) isWindowFree(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	resp, err := g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: resourceID}},
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("freebusy check: %w", err)
	}
	cal, ok := resp.Calendars[resourceID]
	if !ok {
		return false, fmt.Errorf("freebusy check: no data for %s", resourceID)
	}
	return len(cal.Busy) == 0, nil
}

// subtractBusy carves the busy periods out of one candidate window.
func subtractBusy(window slots.Window, busy []slots.Window) []slots.Window {
	remaining := []slots.Window{window}
	for _, b := range busy {
		var next []slots.Window
		for _, w := range remaining {
			if b.End.Before(w.Start) || !b.Start.Before(w.End) {
				next = append(next, w)
				continue
			}
			if b.Start.After(w.Start) {
				next = append(next, slots.Window{Start: w.Start, End: b.Start})
			}
			if b.End.Before(w.End) {
				next = append(next, slots.Window{Start: b.End, End: w.End})
			}
		}
		remaining = next
	}
	return remaining
}
