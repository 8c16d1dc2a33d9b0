package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints
	SendChatMessageHandler gin.HandlerFunc

	// WhatsApp webhook endpoints
	VerifyWebhookHandler  gin.HandlerFunc
	ReceiveWebhookHandler gin.HandlerFunc

	// Admin outreach endpoints
	ListSessionsHandler        gin.HandlerFunc
	ListRequestsHandler        gin.HandlerFunc
	UpdateRequestStatusHandler gin.HandlerFunc
	ListServicesHandler        gin.HandlerFunc
	TriggerSheetSyncHandler    gin.HandlerFunc
}

// NewHandlerBundle wires the concrete handlers into the bundle.
func NewHandlerBundle(chat *ChatHandler, wa *WhatsAppHandler, outreach *OutreachHandler) *HandlerBundle {
	return &HandlerBundle{
		SendChatMessageHandler: chat.SendMessage,

		VerifyWebhookHandler:  wa.VerifyWebhook,
		ReceiveWebhookHandler: wa.ReceiveWebhook,

		ListSessionsHandler:        outreach.ListSessions,
		ListRequestsHandler:        outreach.ListRequests,
		UpdateRequestStatusHandler: outreach.UpdateRequestStatus,
		ListServicesHandler:        outreach.ListServices,
		TriggerSheetSyncHandler:    outreach.TriggerSheetSync,
	}
}
