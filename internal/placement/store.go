package placement

import (
	"context"
	"time"
)

// Store is the transactional persistence boundary of the allocation engine.
type Store interface {
	Reader
	// WithinTx runs fn in one transaction. A nil return commits, anything else
	// (including a panic) rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes row operations valid inside a single transaction. Lock* methods take
// row-exclusive locks (or shared, per LockMode) held until commit or rollback and
// always return the row as it is after the lock was granted.
type Tx interface {
	LockStudent(ctx context.Context, studentID string) (Student, error)
	SetStudentTokens(ctx context.Context, studentID string, update TokenUpdate) error

	LockCompany(ctx context.Context, companyID string, mode LockMode) (Company, error)
	GetJob(ctx context.Context, jobID string) (Job, error)
	InsertJob(ctx context.Context, job Job) error
	// LockJob reads the job FOR UPDATE. Callers hold the company lock first.
	LockJob(ctx context.Context, jobID string) (Job, error)
	UpdateJob(ctx context.Context, job Job) error

	InsertSavedJob(ctx context.Context, studentID, jobID string, at time.Time) error
	// DeleteSavedJob reports whether a bookmark existed.
	DeleteSavedJob(ctx context.Context, studentID, jobID string) (bool, error)

	FindApplication(ctx context.Context, studentID, jobID string) (Application, bool, error)
	InsertApplication(ctx context.Context, app Application) error
	LockApplication(ctx context.Context, applicationID string) (Application, error)
	SetApplicationStatus(ctx context.Context, applicationID string, status ApplicationStatus, at time.Time) error
	// LockPendingForCompany locks every PENDING application on any job of the
	// company except exceptID, ordered by application id.
	LockPendingForCompany(ctx context.Context, companyID, exceptID string) ([]Application, error)

	// LockGrid serializes slot assignment across the whole interview grid.
	LockGrid(ctx context.Context) error
	CountActiveInterviews(ctx context.Context, companyID string) (int, error)
	ListBookings(ctx context.Context) ([]Booking, error)
	InsertInterview(ctx context.Context, interview Interview) error
	LockInterview(ctx context.Context, interviewID string) (Interview, error)
	SetInterviewStatus(ctx context.Context, interviewID string, status InterviewStatus) error
	// HasCompletedInterview reports whether the company has a COMPLETED interview with the student.
	HasCompletedInterview(ctx context.Context, companyID, studentID string) (bool, error)
	// UpsertEvaluation inserts the pair's evaluation or replaces its rating and comment.
	UpsertEvaluation(ctx context.Context, ev Evaluation) error
}

// Reader serves non-locking reads for listings and background jobs.
type Reader interface {
	GetStudent(ctx context.Context, studentID string) (Student, error)
	GetApplication(ctx context.Context, applicationID string) (Application, error)
	ListApplicationsByStudent(ctx context.Context, studentID string) ([]ApplicationSummary, error)
	ListApplicationsByCompany(ctx context.Context, companyID string) ([]ApplicationSummary, error)
	ListInterviewsByStudent(ctx context.Context, studentID string) ([]Interview, error)
	ListInterviewsByCompany(ctx context.Context, companyID string) ([]Interview, error)
	// ListInterviewsStarting returns ACCEPTED interviews with from <= DateTime < to.
	ListInterviewsStarting(ctx context.Context, from, to time.Time) ([]Interview, error)

	GetJob(ctx context.Context, jobID string) (Job, error)
	// ListJobsByCompany returns the company's jobs newest first.
	ListJobsByCompany(ctx context.Context, companyID string) ([]Job, error)
	// ListActiveJobs returns up to limit active jobs newest first.
	ListActiveJobs(ctx context.Context, limit int) ([]Job, error)
	// ListSavedJobs returns the student's bookmarks, most recently saved first.
	ListSavedJobs(ctx context.Context, studentID string) ([]SavedJob, error)
	GetEvaluation(ctx context.Context, companyID, studentID string) (Evaluation, error)
}
