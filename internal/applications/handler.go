package applications

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/placement"
	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the application service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterStudentRoutes attaches student routes. The group must already
// require a student principal.
func (h *Handler) RegisterStudentRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.apply)
	rg.GET("/applications", h.listForStudent)
	rg.POST("/applications/:id/withdraw", h.withdraw)
	rg.GET("/tokens", h.balance)
}

// RegisterCompanyRoutes attaches company routes. The group must already
// require a company principal.
func (h *Handler) RegisterCompanyRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications", h.listForCompany)
	rg.POST("/applications/:id/status", h.updateStatus)
	rg.POST("/invitations", h.invite)
}

func (h *Handler) apply(c *gin.Context) {
	req := applyRequest{}
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "jobId is required", nil)
		return
	}

	res, err := h.Svc.Apply(c.Request.Context(), middleware.UserIDFromContext(c), req.JobID, req.CoverLetter)
	if err != nil {
		writeError(c, err, "failed to apply")
		return
	}
	c.Set("applicationId", res.ApplicationID)
	c.Set("statusTransition", "->PENDING")
	respond.JSON(c, http.StatusCreated, res)
}

func (h *Handler) withdraw(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	if err := h.Svc.Withdraw(c.Request.Context(), id, middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err, "failed to withdraw application")
		return
	}
	c.Set("statusTransition", "PENDING->CANCELLED")
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) listForStudent(c *gin.Context) {
	items, err := h.Svc.ListForStudent(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list applications")
		return
	}
	respond.OK(c, gin.H{"items": toApplicationResponses(items)})
}

func (h *Handler) balance(c *gin.Context) {
	bal, err := h.Svc.Balance(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to load tokens")
		return
	}
	respond.OK(c, bal)
}

func (h *Handler) listForCompany(c *gin.Context) {
	items, err := h.Svc.ListForCompany(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list applications")
		return
	}
	respond.OK(c, gin.H{"items": toApplicationResponses(items)})
}

func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	req := statusRequest{}
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	status := placement.ApplicationStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	res, err := h.Svc.UpdateStatus(c.Request.Context(), id, middleware.UserIDFromContext(c), status)
	if err != nil {
		writeError(c, err, "failed to update application")
		return
	}
	c.Set("statusTransition", "PENDING->"+string(res.Status))
	respond.OK(c, res)
}

func (h *Handler) invite(c *gin.Context) {
	req := inviteRequest{}
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	res, err := h.Svc.Invite(c.Request.Context(), middleware.UserIDFromContext(c), req.StudentID, req.JobID)
	if err != nil {
		writeError(c, err, "failed to invite student")
		return
	}
	c.Set("applicationId", res.ApplicationID)
	c.Set("interviewId", res.Interview.ID)
	c.Set("statusTransition", "->ACCEPTED")
	respond.JSON(c, http.StatusCreated, res)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, placement.ErrInvalidStatus):
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown or disallowed status", nil)
	case errors.Is(err, placement.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid input", nil)
	case errors.Is(err, placement.ErrInsufficientTokens):
		respond.Error(c, http.StatusConflict, "insufficient_tokens", "no application tokens left", nil)
	case errors.Is(err, placement.ErrQuotaExceeded):
		respond.Error(c, http.StatusConflict, "quota_exceeded", "company interview quota reached", nil)
	case errors.Is(err, placement.ErrDuplicateApplication):
		respond.Error(c, http.StatusConflict, "duplicate_application", "already applied to this job", nil)
	case errors.Is(err, placement.ErrNoSlotAvailable):
		respond.Error(c, http.StatusConflict, "no_slot_available", "no interview slot available", nil)
	case errors.Is(err, placement.ErrJobInactive):
		respond.Error(c, http.StatusConflict, "job_inactive", "job is not accepting applications", nil)
	case errors.Is(err, placement.ErrApplicationClosed):
		respond.Error(c, http.StatusConflict, "application_closed", "application already decided", nil)
	case errors.Is(err, placement.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed", nil)
	case errors.Is(err, placement.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func decodeJSON(body io.ReadCloser, out any) error {
	errInvalidJSON := errors.New("invalid json body")
	if body == nil {
		return errInvalidJSON
	}
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(out); err != nil {
		return errInvalidJSON
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errInvalidJSON
	}
	return nil
}
