package interviews

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/placement"
	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the interview service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterStudentRoutes(rg *gin.RouterGroup) {
	rg.GET("/interviews", h.listForStudent)
}

func (h *Handler) RegisterCompanyRoutes(rg *gin.RouterGroup) {
	rg.GET("/interviews", h.listForCompany)
	rg.POST("/interviews/:id/status", h.updateStatus)
	rg.POST("/evaluation", h.saveEvaluation)
	rg.GET("/evaluation/:studentId", h.getEvaluation)
}

func (h *Handler) listForStudent(c *gin.Context) {
	items, err := h.Svc.ListForStudent(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list interviews", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) listForCompany(c *gin.Context) {
	items, err := h.Svc.ListForCompany(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list interviews", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set("interviewId", id)

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	status := placement.InterviewStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	iv, err := h.Svc.UpdateStatus(c.Request.Context(), id, middleware.UserIDFromContext(c), status)
	if err != nil {
		switch {
		case errors.Is(err, placement.ErrInvalidStatus):
			respond.Error(c, http.StatusBadRequest, "validation_error", "status must be COMPLETED or CANCELLED", nil)
		case errors.Is(err, placement.ErrInterviewClosed):
			respond.Error(c, http.StatusConflict, "interview_closed", "interview already closed", nil)
		case errors.Is(err, placement.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "interview not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update interview", nil)
		}
		return
	}
	c.Set("statusTransition", "ACCEPTED->"+string(iv.Status))
	respond.OK(c, iv)
}

func (h *Handler) saveEvaluation(c *gin.Context) {
	var req struct {
		StudentID string `json:"studentId"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	ev, err := h.Svc.SaveEvaluation(c.Request.Context(), middleware.UserIDFromContext(c), req.StudentID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, placement.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "rating must be between 1 and 10", nil)
		case errors.Is(err, placement.ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "student has no completed interview with this company", nil)
		case errors.Is(err, placement.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "company not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save evaluation", nil)
		}
		return
	}
	respond.OK(c, ev)
}

func (h *Handler) getEvaluation(c *gin.Context) {
	ev, err := h.Svc.GetEvaluation(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("studentId"))
	if err != nil {
		if errors.Is(err, placement.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "evaluation not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load evaluation", nil)
		return
	}
	respond.OK(c, ev)
}
