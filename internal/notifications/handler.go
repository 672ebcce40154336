package notifications

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

const listLimit = 50

// Handler serves the caller's in-app notifications.
type Handler struct {
	Inbox Inbox
	Now   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(inbox Inbox) *Handler {
	return &Handler{Inbox: inbox, Now: func() time.Time { return time.Now().UTC() }}
}

// RegisterRoutes attaches notification routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.PUT("/notifications/read-all", h.readAll)
	rg.PUT("/notifications/:id/read", h.read)
	rg.DELETE("/notifications/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	items, err := h.Inbox.ListForUser(c.Request.Context(), userID, listLimit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list notifications", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) read(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	err := h.Inbox.MarkRead(c.Request.Context(), userID, c.Param("id"), h.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "notification not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update notification", nil)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) readAll(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	n, err := h.Inbox.MarkAllRead(c.Request.Context(), userID, h.Now())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update notifications", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "updated": n})
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Inbox.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "notification not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete notification", nil)
		return
	}
	respond.OK(c, gin.H{"success": true})
}
