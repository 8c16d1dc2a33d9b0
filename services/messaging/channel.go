package messaging

import (
	"context"
	"fmt"

	"moyobot/models"
)

// Channel names used in session identities.
const (
	ChannelWeb      = "web"
	ChannelWhatsApp = "whatsapp"
)

// Sender delivers one outbound message to a recipient on a concrete channel.
// Adapters own all channel-specific formatting of the service and slot lists.
type Sender interface {
	Send(ctx context.Context, to string, out models.OutboundMessage) error
}

// NumberSlots renders offered slots as a numbered list users can answer
// with a single digit. Shared by channels without native list widgets.
func NumberSlots(slots []models.Slot) string {
	var b []byte
	for i, s := range slots {
		b = append(b, fmt.Sprintf("%d. %s\n", i+1, s.Display)...)
	}
	if len(b) > 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}
