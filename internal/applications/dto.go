package applications

import (
	"time"

	"placement-backend/internal/placement"
)

type applyRequest struct {
	JobID       string `json:"jobId"`
	CoverLetter string `json:"coverLetter"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type inviteRequest struct {
	StudentID string `json:"studentId"`
	JobID     string `json:"jobId"`
}

// ApplicationResponse is the outward-facing representation of an application.
type ApplicationResponse struct {
	ApplicationID string    `json:"applicationId"`
	JobID         string    `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	CompanyID     string    `json:"companyId"`
	StudentID     string    `json:"studentId"`
	Status        string    `json:"status"`
	CoverLetter   string    `json:"coverLetter,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toApplicationResponses(items []placement.ApplicationSummary) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(items))
	for _, s := range items {
		out = append(out, ApplicationResponse{
			ApplicationID: s.ID,
			JobID:         s.JobID,
			JobTitle:      s.JobTitle,
			CompanyID:     s.CompanyID,
			StudentID:     s.StudentID,
			Status:        string(s.Status),
			CoverLetter:   s.CoverLetter,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		})
	}
	return out
}
