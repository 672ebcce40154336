package jobs

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/placement"
	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the job service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type jobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	IsActive    *bool  `json:"isActive"`
}

func (r jobRequest) input() Input {
	return Input{Title: r.Title, Description: r.Description, Location: r.Location, IsActive: r.IsActive}
}

// RegisterStudentRoutes attaches job browsing and bookmark routes.
func (h *Handler) RegisterStudentRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs", h.listRecent)
	rg.GET("/companies/:companyId/jobs", h.listByCompany)
	rg.POST("/jobs/:id/save", h.toggleSaved)
	rg.GET("/saved-jobs", h.listSaved)
}

// RegisterCompanyRoutes attaches job management routes.
func (h *Handler) RegisterCompanyRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs", h.listOwn)
	rg.POST("/jobs", h.create)
	rg.PUT("/jobs/:id", h.update)
	rg.DELETE("/jobs/:id", h.deactivate)
}

func (h *Handler) listRecent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	items, err := h.Svc.ListRecent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err, "failed to list jobs")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) listByCompany(c *gin.Context) {
	items, err := h.Svc.ListActiveByCompany(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		writeError(c, err, "failed to list jobs")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) toggleSaved(c *gin.Context) {
	saved, err := h.Svc.ToggleSaved(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to save job")
		return
	}
	respond.OK(c, gin.H{"success": true, "saved": saved})
}

func (h *Handler) listSaved(c *gin.Context) {
	items, err := h.Svc.ListSaved(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list saved jobs")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) listOwn(c *gin.Context) {
	items, err := h.Svc.ListForCompany(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list jobs")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) create(c *gin.Context) {
	req := jobRequest{}
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	job, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.input())
	if err != nil {
		writeError(c, err, "failed to create job")
		return
	}
	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusCreated, job)
}

func (h *Handler) update(c *gin.Context) {
	req := jobRequest{}
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	c.Set("jobId", c.Param("id"))
	job, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err, "failed to update job")
		return
	}
	respond.OK(c, job)
}

func (h *Handler) deactivate(c *gin.Context) {
	c.Set("jobId", c.Param("id"))
	job, err := h.Svc.Deactivate(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to close job")
		return
	}
	respond.OK(c, job)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, placement.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid job", nil)
	case errors.Is(err, placement.ErrJobInactive):
		respond.Error(c, http.StatusConflict, "job_inactive", "job is not accepting applications", nil)
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
