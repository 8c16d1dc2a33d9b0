package handlers

import (
	"context"
	"net/http"
	"time"

	"moyobot/models"
	"moyobot/services/conversation"
	"moyobot/services/messaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Upper bound for one full turn, model and calendar calls included.
const turnTimeout = 60 * time.Second

// ChatHandler serves the web chat channel.
type ChatHandler struct {
	Flow   conversation.FlowController
	Logger *zap.Logger
}

// SendMessage handles POST /api/chat/send. The response body is the
// OutboundMessage; the web frontend renders the service and slot lists.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var body struct {
		Address     string `json:"address" binding:"required"`
		Message     string `json:"message"`
		SelectionID string `json:"selectionId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.Logger.Error("SendMessage: invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	if body.Message == "" && body.SelectionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message or selectionId required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), turnTimeout)
	defer cancel()

	out, err := h.Flow.HandleMessage(ctx, models.InboundMessage{
		Identity:    models.Identity{Channel: messaging.ChannelWeb, Address: body.Address},
		Text:        body.Message,
		SelectionID: body.SelectionID,
	})
	if err != nil {
		h.Logger.Error("SendMessage: turn failed", zap.String("address", body.Address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, out)
}
