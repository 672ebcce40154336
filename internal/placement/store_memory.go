package placement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Transactions are serialized under one mutex
// and applied copy-on-commit, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	students     map[string]Student
	companies    map[string]Company
	jobs         map[string]Job
	applications map[string]Application
	interviews   map[string]Interview
	savedJobs    map[string]SavedJob
	evaluations  map[string]Evaluation
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		students:     make(map[string]Student),
		companies:    make(map[string]Company),
		jobs:         make(map[string]Job),
		applications: make(map[string]Application),
		interviews:   make(map[string]Interview),
		savedJobs:    make(map[string]SavedJob),
		evaluations:  make(map[string]Evaluation),
	}}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		students:     cloneMap(s.students),
		companies:    cloneMap(s.companies),
		jobs:         cloneMap(s.jobs),
		applications: cloneMap(s.applications),
		interviews:   cloneMap(s.interviews),
		savedJobs:    cloneMap(s.savedJobs),
		evaluations:  cloneMap(s.evaluations),
	}
}

func pairKey(a, b string) string {
	return a + "|" + b
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PutStudent seeds or replaces a student row.
func (s *MemoryStore) PutStudent(student Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.students[student.ID] = student
}

// PutCompany seeds or replaces a company row.
func (s *MemoryStore) PutCompany(company Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.companies[company.ID] = company
}

// PutJob seeds or replaces a job row.
func (s *MemoryStore) PutJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.jobs[job.ID] = job
}

// PutApplication seeds or replaces an application row.
func (s *MemoryStore) PutApplication(app Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.applications[app.ID] = app
}

// PutInterview seeds or replaces an interview row.
func (s *MemoryStore) PutInterview(interview Interview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.interviews[interview.ID] = interview
}

// WithinTx implements Store.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) GetStudent(ctx context.Context, studentID string) (Student, error) {
	if err := ctx.Err(); err != nil {
		return Student{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.state.students[studentID]
	if !ok {
		return Student{}, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	return student, nil
}

func (s *MemoryStore) GetApplication(ctx context.Context, applicationID string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.state.applications[applicationID]
	if !ok {
		return Application{}, fmt.Errorf("application %s: %w", applicationID, ErrNotFound)
	}
	return app, nil
}

func (s *MemoryStore) ListApplicationsByStudent(ctx context.Context, studentID string) ([]ApplicationSummary, error) {
	return s.listApplications(ctx, func(app Application, job Job) bool {
		return app.StudentID == studentID
	})
}

func (s *MemoryStore) ListApplicationsByCompany(ctx context.Context, companyID string) ([]ApplicationSummary, error) {
	return s.listApplications(ctx, func(app Application, job Job) bool {
		return job.CompanyID == companyID
	})
}

func (s *MemoryStore) listApplications(ctx context.Context, keep func(Application, Job) bool) ([]ApplicationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ApplicationSummary, 0)
	for _, app := range s.state.applications {
		job := s.state.jobs[app.JobID]
		if !keep(app, job) {
			continue
		}
		out = append(out, ApplicationSummary{Application: app, JobTitle: job.Title, CompanyID: job.CompanyID})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListInterviewsByStudent(ctx context.Context, studentID string) ([]Interview, error) {
	return s.listInterviews(ctx, func(iv Interview) bool { return iv.StudentID == studentID })
}

func (s *MemoryStore) ListInterviewsByCompany(ctx context.Context, companyID string) ([]Interview, error) {
	return s.listInterviews(ctx, func(iv Interview) bool { return iv.CompanyID == companyID })
}

func (s *MemoryStore) ListInterviewsStarting(ctx context.Context, from, to time.Time) ([]Interview, error) {
	return s.listInterviews(ctx, func(iv Interview) bool {
		return iv.Status == InterviewAccepted && !iv.DateTime.Before(from) && iv.DateTime.Before(to)
	})
}

func (s *MemoryStore) listInterviews(ctx context.Context, keep func(Interview) bool) ([]Interview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Interview, 0)
	for _, iv := range s.state.interviews {
		if keep(iv) {
			out = append(out, iv)
		}
	}
	sortInterviews(out)
	return out, nil
}

func sortInterviews(items []Interview) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].DateTime.Equal(items[j].DateTime) {
			return items[i].DateTime.Before(items[j].DateTime)
		}
		if items[i].Room != items[j].Room {
			return items[i].Room < items[j].Room
		}
		return items[i].ID < items[j].ID
	})
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.state.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return job, nil
}

func (s *MemoryStore) ListJobsByCompany(ctx context.Context, companyID string) ([]Job, error) {
	return s.listJobs(ctx, 0, func(j Job) bool { return j.CompanyID == companyID })
}

func (s *MemoryStore) ListActiveJobs(ctx context.Context, limit int) ([]Job, error) {
	return s.listJobs(ctx, limit, func(j Job) bool { return j.IsActive })
}

func (s *MemoryStore) listJobs(ctx context.Context, limit int, keep func(Job) bool) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0)
	for _, j := range s.state.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	sortJobs(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortJobs(items []Job) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func (s *MemoryStore) ListSavedJobs(ctx context.Context, studentID string) ([]SavedJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SavedJob, 0)
	for key, saved := range s.state.savedJobs {
		if key != pairKey(studentID, saved.ID) {
			continue
		}
		job, ok := s.state.jobs[saved.ID]
		if !ok {
			continue
		}
		out = append(out, SavedJob{Job: job, SavedAt: saved.SavedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetEvaluation(ctx context.Context, companyID, studentID string) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.state.evaluations[pairKey(companyID, studentID)]
	if !ok {
		return Evaluation{}, fmt.Errorf("evaluation of %s by %s: %w", studentID, companyID, ErrNotFound)
	}
	return ev, nil
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) LockStudent(ctx context.Context, studentID string) (Student, error) {
	student, ok := t.state.students[studentID]
	if !ok {
		return Student{}, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	return student, nil
}

func (t *memoryTx) SetStudentTokens(ctx context.Context, studentID string, update TokenUpdate) error {
	student, ok := t.state.students[studentID]
	if !ok {
		return fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	if update.Remaining < 0 {
		return fmt.Errorf("student %s: %w", studentID, ErrLedgerInvariant)
	}
	student.TokensRemaining = update.Remaining
	student.TokensEngaged = update.Engaged
	student.TokensConsumed = update.Consumed
	t.state.students[studentID] = student
	return nil
}

func (t *memoryTx) LockCompany(ctx context.Context, companyID string, mode LockMode) (Company, error) {
	company, ok := t.state.companies[companyID]
	if !ok {
		return Company{}, fmt.Errorf("company %s: %w", companyID, ErrNotFound)
	}
	return company, nil
}

func (t *memoryTx) GetJob(ctx context.Context, jobID string) (Job, error) {
	job, ok := t.state.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return job, nil
}

func (t *memoryTx) InsertJob(ctx context.Context, job Job) error {
	if _, ok := t.state.companies[job.CompanyID]; !ok {
		return fmt.Errorf("company %s: %w", job.CompanyID, ErrNotFound)
	}
	if _, ok := t.state.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	t.state.jobs[job.ID] = job
	return nil
}

func (t *memoryTx) LockJob(ctx context.Context, jobID string) (Job, error) {
	return t.GetJob(ctx, jobID)
}

func (t *memoryTx) UpdateJob(ctx context.Context, job Job) error {
	current, ok := t.state.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	current.Title = job.Title
	current.Description = job.Description
	current.Location = job.Location
	current.IsActive = job.IsActive
	t.state.jobs[job.ID] = current
	return nil
}

func (t *memoryTx) InsertSavedJob(ctx context.Context, studentID, jobID string, at time.Time) error {
	if _, ok := t.state.students[studentID]; !ok {
		return fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	key := pairKey(studentID, jobID)
	if _, ok := t.state.savedJobs[key]; ok {
		return nil
	}
	t.state.savedJobs[key] = SavedJob{Job: Job{ID: jobID}, SavedAt: at}
	return nil
}

func (t *memoryTx) DeleteSavedJob(ctx context.Context, studentID, jobID string) (bool, error) {
	key := pairKey(studentID, jobID)
	if _, ok := t.state.savedJobs[key]; !ok {
		return false, nil
	}
	delete(t.state.savedJobs, key)
	return true, nil
}

func (t *memoryTx) FindApplication(ctx context.Context, studentID, jobID string) (Application, bool, error) {
	for _, app := range t.state.applications {
		if app.StudentID == studentID && app.JobID == jobID {
			return app, true, nil
		}
	}
	return Application{}, false, nil
}

func (t *memoryTx) InsertApplication(ctx context.Context, app Application) error {
	if _, found, _ := t.FindApplication(ctx, app.StudentID, app.JobID); found {
		return fmt.Errorf("student %s job %s: %w", app.StudentID, app.JobID, ErrDuplicateApplication)
	}
	t.state.applications[app.ID] = app
	return nil
}

func (t *memoryTx) LockApplication(ctx context.Context, applicationID string) (Application, error) {
	app, ok := t.state.applications[applicationID]
	if !ok {
		return Application{}, fmt.Errorf("application %s: %w", applicationID, ErrNotFound)
	}
	return app, nil
}

func (t *memoryTx) SetApplicationStatus(ctx context.Context, applicationID string, status ApplicationStatus, at time.Time) error {
	app, ok := t.state.applications[applicationID]
	if !ok {
		return fmt.Errorf("application %s: %w", applicationID, ErrNotFound)
	}
	app.Status = status
	app.UpdatedAt = at
	t.state.applications[applicationID] = app
	return nil
}

func (t *memoryTx) LockPendingForCompany(ctx context.Context, companyID, exceptID string) ([]Application, error) {
	out := make([]Application, 0)
	for _, app := range t.state.applications {
		if app.ID == exceptID || app.Status != StatusPending {
			continue
		}
		if t.state.jobs[app.JobID].CompanyID != companyID {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) LockGrid(ctx context.Context) error {
	return nil
}

func (t *memoryTx) CountActiveInterviews(ctx context.Context, companyID string) (int, error) {
	count := 0
	for _, iv := range t.state.interviews {
		if iv.CompanyID == companyID && iv.Status.CountsTowardQuota() {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) ListBookings(ctx context.Context) ([]Booking, error) {
	items := make([]Interview, 0, len(t.state.interviews))
	for _, iv := range t.state.interviews {
		if iv.Status != InterviewCancelled {
			items = append(items, iv)
		}
	}
	sortInterviews(items)
	out := make([]Booking, 0, len(items))
	for _, iv := range items {
		out = append(out, Booking{CompanyID: iv.CompanyID, StudentID: iv.StudentID, DateTime: iv.DateTime, Room: iv.Room})
	}
	return out, nil
}

func (t *memoryTx) InsertInterview(ctx context.Context, interview Interview) error {
	for _, iv := range t.state.interviews {
		if iv.Status == InterviewCancelled {
			continue
		}
		if iv.ApplicationID == interview.ApplicationID && interview.ApplicationID != "" {
			return fmt.Errorf("application %s already has an interview: %w", interview.ApplicationID, ErrApplicationClosed)
		}
		if iv.DateTime.Equal(interview.DateTime) && iv.Room == interview.Room {
			return fmt.Errorf("room %s at %s: %w", interview.Room, interview.DateTime.Format(time.RFC3339), ErrNoSlotAvailable)
		}
	}
	t.state.interviews[interview.ID] = interview
	return nil
}

func (t *memoryTx) LockInterview(ctx context.Context, interviewID string) (Interview, error) {
	iv, ok := t.state.interviews[interviewID]
	if !ok {
		return Interview{}, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
	}
	return iv, nil
}

func (t *memoryTx) SetInterviewStatus(ctx context.Context, interviewID string, status InterviewStatus) error {
	iv, ok := t.state.interviews[interviewID]
	if !ok {
		return fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
	}
	iv.Status = status
	t.state.interviews[interviewID] = iv
	return nil
}

func (t *memoryTx) HasCompletedInterview(ctx context.Context, companyID, studentID string) (bool, error) {
	for _, iv := range t.state.interviews {
		if iv.CompanyID == companyID && iv.StudentID == studentID && iv.Status == InterviewCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) UpsertEvaluation(ctx context.Context, ev Evaluation) error {
	key := pairKey(ev.CompanyID, ev.StudentID)
	if current, ok := t.state.evaluations[key]; ok {
		ev.CreatedAt = current.CreatedAt
	}
	t.state.evaluations[key] = ev
	return nil
}
