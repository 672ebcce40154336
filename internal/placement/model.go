package placement

import "time"

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	StatusPending        ApplicationStatus = "PENDING"
	StatusAccepted       ApplicationStatus = "ACCEPTED"
	StatusRejected       ApplicationStatus = "REJECTED"
	StatusRejectedQuota  ApplicationStatus = "REJECTED_QUOTA"
	StatusCancelled      ApplicationStatus = "CANCELLED"
	StatusCancelledQuota ApplicationStatus = "CANCELLED_QUOTA"
)

// Known reports whether s is one of the defined application statuses.
func (s ApplicationStatus) Known() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusRejectedQuota, StatusCancelled, StatusCancelledQuota:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed out of s.
func (s ApplicationStatus) Terminal() bool {
	return s.Known() && s != StatusPending
}

// InterviewStatus is the state of a booked interview.
type InterviewStatus string

const (
	InterviewAccepted  InterviewStatus = "ACCEPTED"
	InterviewCompleted InterviewStatus = "COMPLETED"
	InterviewCancelled InterviewStatus = "CANCELLED"
)

// CountsTowardQuota reports whether an interview in this state holds a quota seat.
func (s InterviewStatus) CountsTowardQuota() bool {
	return s == InterviewAccepted || s == InterviewCompleted
}

// Room identifies an interview room on the campus grid.
type Room string

const (
	RoomA1 Room = "A1"
	RoomA2 Room = "A2"
)

// Student holds the token ledger of a student. The three buckets always sum to MaxTokens.
type Student struct {
	ID              string `json:"id"`
	TokensRemaining int    `json:"tokensRemaining"`
	TokensEngaged   int    `json:"tokensEngaged"`
	TokensConsumed  int    `json:"tokensConsumed"`
	MaxTokens       int    `json:"maxTokens"`
}

// Company holds the interview seat quota of a company.
type Company struct {
	ID             string `json:"id"`
	InterviewQuota int    `json:"interviewQuota"`
}

// Job is an opening posted by a company. Inactive jobs accept no applications.
type Job struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SavedJob is a job bookmarked by a student.
type SavedJob struct {
	Job
	SavedAt time.Time `json:"savedAt"`
}

// Evaluation is a company's rating of a student it interviewed, one per pair.
type Evaluation struct {
	CompanyID string    `json:"companyId"`
	StudentID string    `json:"studentId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Application is a student's candidacy on a job.
type Application struct {
	ID          string            `json:"id"`
	JobID       string            `json:"jobId"`
	StudentID   string            `json:"studentId"`
	Status      ApplicationStatus `json:"status"`
	CoverLetter string            `json:"coverLetter"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ApplicationSummary is an application joined with its job for listings.
type ApplicationSummary struct {
	Application
	JobTitle  string `json:"jobTitle"`
	CompanyID string `json:"companyId"`
}

// Interview is a booked (time, room) cell tied to an accepted application.
type Interview struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"companyId"`
	StudentID     string          `json:"studentId"`
	ApplicationID string          `json:"applicationId"`
	Title         string          `json:"title"`
	DateTime      time.Time       `json:"dateTime"`
	Room          Room            `json:"room"`
	Status        InterviewStatus `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Booking is the projection of a non-cancelled interview used for slot search.
type Booking struct {
	CompanyID string
	StudentID string
	DateTime  time.Time
	Room      Room
}

// TokenUpdate enumerates every writable ledger column of a student row.
type TokenUpdate struct {
	Remaining int
	Engaged   int
	Consumed  int
}

// LockMode selects the row lock taken on a company.
type LockMode int

const (
	LockShare LockMode = iota
	LockUpdate
)
