package handlers

import (
	"context"
	"io"
	"net/http"

	"moyobot/services/conversation"
	"moyobot/services/messaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WhatsAppHandler serves the WhatsApp Cloud API webhook.
type WhatsAppHandler struct {
	Flow        conversation.FlowController
	Sender      messaging.Sender
	VerifyToken string
	Logger      *zap.Logger
}

// VerifyWebhook handles GET /webhook, the subscription handshake.
func (h *WhatsAppHandler) VerifyWebhook(c *gin.Context) {
	challenge, ok := messaging.VerifyChallenge(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
		h.VerifyToken,
	)
	if !ok {
		h.Logger.Warn("VerifyWebhook: token mismatch")
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhook handles POST /webhook. The Cloud API retries deliveries
// that do not get a fast 200, so the turn itself runs after responding.
func (h *WhatsAppHandler) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	inbound, err := messaging.ParseWebhook(body)
	if err != nil {
		h.Logger.Warn("ReceiveWebhook: unparsable payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusOK)

	for _, in := range inbound {
		in := in
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
			defer cancel()

			out, err := h.Flow.HandleMessage(ctx, in)
			if err != nil {
				h.Logger.Error("ReceiveWebhook: turn failed",
					zap.String("address", in.Identity.Address), zap.Error(err))
				return
			}
			if err := h.Sender.Send(ctx, in.Identity.Address, *out); err != nil {
				h.Logger.Error("ReceiveWebhook: reply delivery failed",
					zap.String("address", in.Identity.Address), zap.Error(err))
			}
		}()
	}
}
