package booking

import (
	"context"
	"time"

	"moyobot/models"
	"moyobot/services/slots"
)

// Calendar is the external calendar collaborator. The core depends on this
// contract but does not implement it. CreateEvent is the sole source of
// atomicity for reservations: the collaborator either accepts the event or
// rejects it because the window is no longer free.
type Calendar interface {
	ListFreeWindows(ctx context.Context, resourceID string) ([]slots.Window, error)
	CreateEvent(ctx context.Context, resourceID, title string, start, end time.Time, attendeeEmail, description string) (*models.EventDetails, bool, error)
}

// Outcome classifies the result of a reservation attempt.
type Outcome int

const (
	// Confirmed means the calendar collaborator accepted the event.
	Confirmed Outcome = iota
	// Conflict means the slot was taken, or the collaborator could not
	// confirm. Success is never reported without collaborator confirmation.
	Conflict
	// NoMatchingSlot means the requested time matched nothing in the live
	// availability set within tolerance.
	NoMatchingSlot
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Conflict:
		return "conflict"
	default:
		return "no_matching_slot"
	}
}

// Result carries the outcome of one reservation attempt. On any non-success
// outcome LiveSlots holds a freshly recomputed availability set so the flow
// controller can re-offer it.
type Result struct {
	Outcome   Outcome
	Event     *models.EventDetails
	Slot      models.Slot
	LiveSlots []models.Slot
}

// Coordinator turns a BookingRequest plus live availability into either a
// confirmed reservation or a conflict response.
type Coordinator interface {
	LiveSlots(ctx context.Context) ([]models.Slot, error)
	Reserve(ctx context.Context, req models.BookingRequest) (*Result, error)
}
