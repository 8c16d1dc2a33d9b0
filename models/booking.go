package models

import "time"

// BookingRequest is a reservation intent extracted from assistant output.
// It is untrusted input (the model may hallucinate any field) and must be
// revalidated against live availability before being committed.
type BookingRequest struct {
	ServiceName   string    `json:"service,omitempty"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	AttendeeEmail string    `json:"attendeeEmail"`
	Name          string    `json:"name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Company       string    `json:"company,omitempty"`
	Details       string    `json:"details,omitempty"`
}

// Valid reports whether the mandatory fields are present.
func (r BookingRequest) Valid() bool {
	return !r.Start.IsZero() && r.AttendeeEmail != ""
}

// EventDetails describes a reservation confirmed by the calendar collaborator.
type EventDetails struct {
	EventID     string    `json:"eventId"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	MeetingLink string    `json:"meetingLink,omitempty"`
}
