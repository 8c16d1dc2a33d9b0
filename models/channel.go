package models

// InboundMessage is the normalized envelope every channel adapter delivers to
// the flow controller. Exactly one of Text or SelectionID is set.
type InboundMessage struct {
	Identity    Identity `json:"identity"`
	Text        string   `json:"text,omitempty"`
	SelectionID string   `json:"selectionId,omitempty"`
}

// OutboundMessage is what the flow controller hands back to a channel
// adapter for delivery. Channel-specific formatting happens in the adapter.
type OutboundMessage struct {
	Text             string    `json:"reply"`
	Services         []Service `json:"services,omitempty"`
	Slots            []Slot    `json:"freeSlots,omitempty"`
	BookingConfirmed bool      `json:"bookingConfirmed"`
}
