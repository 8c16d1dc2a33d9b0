package handlers

import (
	"context"
	"net/http"

	requestsRepo "moyobot/database/repository/requests"
	"moyobot/models"
	"moyobot/services/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionLister exposes a read-only view of live sessions for the admin API.
type SessionLister interface {
	Snapshot(ctx context.Context) ([]*models.Session, error)
}

// OutreachHandler serves the admin endpoints the consultancy's team uses to
// follow up on leads and review conversations.
type OutreachHandler struct {
	Sessions SessionLister
	Requests requestsRepo.ServiceRequestRepository
	Catalog  *catalog.Catalog
	Syncer   *catalog.SheetSyncer
	Logger   *zap.Logger
}

// ListSessions handles GET /api/admin/sessions.
func (h *OutreachHandler) ListSessions(c *gin.Context) {
	sessions, err := h.Sessions.Snapshot(c.Request.Context())
	if err != nil {
		h.Logger.Error("ListSessions: snapshot failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ListRequests handles GET /api/admin/requests.
func (h *OutreachHandler) ListRequests(c *gin.Context) {
	reqs, err := h.Requests.List(c.Request.Context())
	if err != nil {
		h.Logger.Error("ListRequests: lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list requests"})
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// UpdateRequestStatus handles PATCH /api/admin/requests/:id/status.
func (h *OutreachHandler) UpdateRequestStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.Requests.UpdateStatus(c.Request.Context(), id, body.Status); err != nil {
		h.Logger.Error("UpdateRequestStatus: update failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": body.Status})
}

// ListServices handles GET /api/admin/services.
func (h *OutreachHandler) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, h.Catalog.Services(c.Request.Context()))
}

// TriggerSheetSync handles POST /api/admin/content/sync.
func (h *OutreachHandler) TriggerSheetSync(c *gin.Context) {
	if h.Syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sheet sync not configured"})
		return
	}
	services, faqs, err := h.Syncer.Sync(c.Request.Context())
	if err != nil {
		h.Logger.Error("TriggerSheetSync: sync failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "sheet sync failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services, "faqs": faqs})
}
