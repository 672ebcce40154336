package placement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	checkViolation      = "23514"
	foreignKeyViolation = "23503"

	interviewSlotKey        = "interviews_slot_key"
	interviewApplicationKey = "interviews_application_key"

	// gridLockKey is the transaction-scoped advisory lock guarding slot assignment.
	gridLockKey int64 = 0x706c6163656d6e74
)

// PGStore is the Postgres-backed Store.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

// WithinTx implements Store.
func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PGStore) GetStudent(ctx context.Context, studentID string) (Student, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT id, tokens_remaining, tokens_engaged, tokens_consumed, max_tokens
FROM students WHERE id = $1`, studentID)
	return scanStudent(row, studentID)
}

func (s *PGStore) GetApplication(ctx context.Context, applicationID string) (Application, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT id, job_id, student_id, status, cover_letter, created_at, updated_at
FROM applications WHERE id = $1`, applicationID)
	return scanApplication(row, applicationID)
}

func (s *PGStore) ListApplicationsByStudent(ctx context.Context, studentID string) ([]ApplicationSummary, error) {
	return s.listApplications(ctx, `
SELECT a.id, a.job_id, a.student_id, a.status, a.cover_letter, a.created_at, a.updated_at, j.title, j.company_id
FROM applications a JOIN jobs j ON j.id = a.job_id
WHERE a.student_id = $1
ORDER BY a.created_at DESC, a.id`, studentID)
}

func (s *PGStore) ListApplicationsByCompany(ctx context.Context, companyID string) ([]ApplicationSummary, error) {
	return s.listApplications(ctx, `
SELECT a.id, a.job_id, a.student_id, a.status, a.cover_letter, a.created_at, a.updated_at, j.title, j.company_id
FROM applications a JOIN jobs j ON j.id = a.job_id
WHERE j.company_id = $1
ORDER BY a.created_at DESC, a.id`, companyID)
}

func (s *PGStore) listApplications(ctx context.Context, query string, arg string) ([]ApplicationSummary, error) {
	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ApplicationSummary, 0)
	for rows.Next() {
		var item ApplicationSummary
		var status string
		if err := rows.Scan(&item.ID, &item.JobID, &item.StudentID, &status, &item.CoverLetter,
			&item.CreatedAt, &item.UpdatedAt, &item.JobTitle, &item.CompanyID); err != nil {
			return nil, err
		}
		item.Status = ApplicationStatus(status)
		out = append(out, item)
	}
	return out, rows.Err()
}

const interviewColumns = `id, company_id, student_id, application_id, title, date_time, room, status, created_at`

func (s *PGStore) ListInterviewsByStudent(ctx context.Context, studentID string) ([]Interview, error) {
	return queryInterviews(ctx, s.DB, `SELECT `+interviewColumns+`
FROM interviews WHERE student_id = $1 ORDER BY date_time, room, id`, studentID)
}

func (s *PGStore) ListInterviewsByCompany(ctx context.Context, companyID string) ([]Interview, error) {
	return queryInterviews(ctx, s.DB, `SELECT `+interviewColumns+`
FROM interviews WHERE company_id = $1 ORDER BY date_time, room, id`, companyID)
}

func (s *PGStore) ListInterviewsStarting(ctx context.Context, from, to time.Time) ([]Interview, error) {
	return queryInterviews(ctx, s.DB, `SELECT `+interviewColumns+`
FROM interviews WHERE status = 'ACCEPTED' AND date_time >= $1 AND date_time < $2
ORDER BY date_time, room, id`, from.UTC(), to.UTC())
}

func (s *PGStore) GetJob(ctx context.Context, jobID string) (Job, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	return scanJob(row, jobID)
}

func (s *PGStore) ListJobsByCompany(ctx context.Context, companyID string) ([]Job, error) {
	return s.listJobs(ctx, `SELECT `+jobColumns+`
FROM jobs WHERE company_id = $1 ORDER BY created_at DESC, id`, companyID)
}

func (s *PGStore) ListActiveJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.listJobs(ctx, `SELECT `+jobColumns+`
FROM jobs WHERE is_active ORDER BY created_at DESC, id LIMIT $1`, limit)
}

func (s *PGStore) listJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Job, 0)
	for rows.Next() {
		j, err := scanJob(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *PGStore) ListSavedJobs(ctx context.Context, studentID string) ([]SavedJob, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT j.id, j.company_id, j.title, j.description, j.location, j.is_active, j.created_at, sj.created_at
FROM saved_jobs sj JOIN jobs j ON j.id = sj.job_id
WHERE sj.student_id = $1
ORDER BY sj.created_at DESC, j.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SavedJob, 0)
	for rows.Next() {
		var item SavedJob
		if err := rows.Scan(&item.ID, &item.CompanyID, &item.Title, &item.Description, &item.Location,
			&item.IsActive, &item.CreatedAt, &item.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PGStore) GetEvaluation(ctx context.Context, companyID, studentID string) (Evaluation, error) {
	var ev Evaluation
	err := s.DB.QueryRowContext(ctx, `
SELECT company_id, student_id, rating, comment, created_at, updated_at
FROM evaluations WHERE company_id = $1 AND student_id = $2`, companyID, studentID).
		Scan(&ev.CompanyID, &ev.StudentID, &ev.Rating, &ev.Comment, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Evaluation{}, fmt.Errorf("evaluation of %s by %s: %w", studentID, companyID, ErrNotFound)
		}
		return Evaluation{}, err
	}
	return ev, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryInterviews(ctx context.Context, q queryer, query string, args ...any) ([]Interview, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Interview, 0)
	for rows.Next() {
		var iv Interview
		var room, status string
		var applicationID sql.NullString
		if err := rows.Scan(&iv.ID, &iv.CompanyID, &iv.StudentID, &applicationID, &iv.Title,
			&iv.DateTime, &room, &status, &iv.CreatedAt); err != nil {
			return nil, err
		}
		iv.ApplicationID = applicationID.String
		iv.Room = Room(room)
		iv.Status = InterviewStatus(status)
		out = append(out, iv)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockStudent(ctx context.Context, studentID string) (Student, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, tokens_remaining, tokens_engaged, tokens_consumed, max_tokens
FROM students WHERE id = $1 FOR UPDATE`, studentID)
	return scanStudent(row, studentID)
}

func (t *pgTx) SetStudentTokens(ctx context.Context, studentID string, update TokenUpdate) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE students SET tokens_remaining = $1, tokens_engaged = $2, tokens_consumed = $3
WHERE id = $4`, update.Remaining, update.Engaged, update.Consumed, studentID)
	if err != nil {
		if pgCode(err) == checkViolation {
			return fmt.Errorf("student %s: %w", studentID, ErrLedgerInvariant)
		}
		return err
	}
	return expectOneRow(res, "student", studentID)
}

func (t *pgTx) LockCompany(ctx context.Context, companyID string, mode LockMode) (Company, error) {
	query := `SELECT id, interview_quota FROM companies WHERE id = $1 FOR SHARE`
	if mode == LockUpdate {
		query = `SELECT id, interview_quota FROM companies WHERE id = $1 FOR UPDATE`
	}
	var c Company
	if err := t.tx.QueryRowContext(ctx, query, companyID).Scan(&c.ID, &c.InterviewQuota); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, fmt.Errorf("company %s: %w", companyID, ErrNotFound)
		}
		return Company{}, err
	}
	return c, nil
}

func (t *pgTx) GetJob(ctx context.Context, jobID string) (Job, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	return scanJob(row, jobID)
}

func (t *pgTx) LockJob(ctx context.Context, jobID string) (Job, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
	return scanJob(row, jobID)
}

func (t *pgTx) InsertJob(ctx context.Context, job Job) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO jobs (id, company_id, title, description, location, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.CompanyID, job.Title, job.Description, job.Location, job.IsActive, job.CreatedAt)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return fmt.Errorf("company %s: %w", job.CompanyID, ErrNotFound)
		}
		return err
	}
	return nil
}

func (t *pgTx) UpdateJob(ctx context.Context, job Job) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE jobs SET title = $1, description = $2, location = $3, is_active = $4
WHERE id = $5`, job.Title, job.Description, job.Location, job.IsActive, job.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "job", job.ID)
}

func (t *pgTx) InsertSavedJob(ctx context.Context, studentID, jobID string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO saved_jobs (student_id, job_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (student_id, job_id) DO NOTHING`, studentID, jobID, at)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return fmt.Errorf("student %s job %s: %w", studentID, jobID, ErrNotFound)
		}
		return err
	}
	return nil
}

func (t *pgTx) DeleteSavedJob(ctx context.Context, studentID, jobID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
DELETE FROM saved_jobs WHERE student_id = $1 AND job_id = $2`, studentID, jobID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *pgTx) FindApplication(ctx context.Context, studentID, jobID string) (Application, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, job_id, student_id, status, cover_letter, created_at, updated_at
FROM applications WHERE student_id = $1 AND job_id = $2`, studentID, jobID)
	app, err := scanApplication(row, "")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, false, nil
		}
		return Application{}, false, err
	}
	return app, true, nil
}

func (t *pgTx) InsertApplication(ctx context.Context, app Application) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO applications (id, job_id, student_id, status, cover_letter, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.JobID, app.StudentID, string(app.Status), app.CoverLetter, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return fmt.Errorf("student %s job %s: %w", app.StudentID, app.JobID, ErrDuplicateApplication)
		}
		return err
	}
	return nil
}

func (t *pgTx) LockApplication(ctx context.Context, applicationID string) (Application, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, job_id, student_id, status, cover_letter, created_at, updated_at
FROM applications WHERE id = $1 FOR UPDATE`, applicationID)
	return scanApplication(row, applicationID)
}

func (t *pgTx) SetApplicationStatus(ctx context.Context, applicationID string, status ApplicationStatus, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`, string(status), at, applicationID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "application", applicationID)
}

func (t *pgTx) LockPendingForCompany(ctx context.Context, companyID, exceptID string) ([]Application, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT a.id, a.job_id, a.student_id, a.status, a.cover_letter, a.created_at, a.updated_at
FROM applications a JOIN jobs j ON j.id = a.job_id
WHERE j.company_id = $1 AND a.status = 'PENDING' AND a.id <> $2
ORDER BY a.id
FOR UPDATE OF a`, companyID, exceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Application, 0)
	for rows.Next() {
		var app Application
		var status string
		if err := rows.Scan(&app.ID, &app.JobID, &app.StudentID, &status, &app.CoverLetter,
			&app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, err
		}
		app.Status = ApplicationStatus(status)
		out = append(out, app)
	}
	return out, rows.Err()
}

func (t *pgTx) LockGrid(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, gridLockKey)
	return err
}

func (t *pgTx) CountActiveInterviews(ctx context.Context, companyID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM interviews WHERE company_id = $1 AND status IN ('ACCEPTED', 'COMPLETED')`, companyID).Scan(&n)
	return n, err
}

func (t *pgTx) ListBookings(ctx context.Context) ([]Booking, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT company_id, student_id, date_time, COALESCE(room, '')
FROM interviews WHERE status <> 'CANCELLED'
ORDER BY date_time, room`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Booking, 0)
	for rows.Next() {
		var b Booking
		var room string
		if err := rows.Scan(&b.CompanyID, &b.StudentID, &b.DateTime, &room); err != nil {
			return nil, err
		}
		b.Room = Room(room)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertInterview(ctx context.Context, iv Interview) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO interviews (id, company_id, student_id, application_id, title, date_time, room, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		iv.ID, iv.CompanyID, iv.StudentID, nullString(iv.ApplicationID), iv.Title,
		iv.DateTime.UTC(), string(iv.Room), string(iv.Status), iv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case interviewSlotKey:
				return fmt.Errorf("room %s at %s: %w", iv.Room, iv.DateTime.Format(time.RFC3339), ErrNoSlotAvailable)
			case interviewApplicationKey:
				return fmt.Errorf("application %s already has an interview: %w", iv.ApplicationID, ErrApplicationClosed)
			}
		}
		return err
	}
	return nil
}

func (t *pgTx) LockInterview(ctx context.Context, interviewID string) (Interview, error) {
	items, err := queryInterviews(ctx, t.tx, `SELECT `+interviewColumns+`
FROM interviews WHERE id = $1 FOR UPDATE`, interviewID)
	if err != nil {
		return Interview{}, err
	}
	if len(items) == 0 {
		return Interview{}, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
	}
	return items[0], nil
}

func (t *pgTx) SetInterviewStatus(ctx context.Context, interviewID string, status InterviewStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE interviews SET status = $1 WHERE id = $2`, string(status), interviewID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "interview", interviewID)
}

func (t *pgTx) HasCompletedInterview(ctx context.Context, companyID, studentID string) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM interviews WHERE company_id = $1 AND student_id = $2 AND status = 'COMPLETED')`,
		companyID, studentID).Scan(&ok)
	return ok, err
}

func (t *pgTx) UpsertEvaluation(ctx context.Context, ev Evaluation) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO evaluations (company_id, student_id, rating, comment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (company_id, student_id)
DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at`,
		ev.CompanyID, ev.StudentID, ev.Rating, ev.Comment, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		if pgCode(err) == checkViolation {
			return fmt.Errorf("rating %d: %w", ev.Rating, ErrInvalidInput)
		}
		return err
	}
	return nil
}

const jobColumns = `id, company_id, title, description, location, is_active, created_at`

func scanJob(row rowScanner, jobID string) (Job, error) {
	var j Job
	if err := row.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Description, &j.Location, &j.IsActive, &j.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return Job{}, err
	}
	return j, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner, studentID string) (Student, error) {
	var s Student
	if err := row.Scan(&s.ID, &s.TokensRemaining, &s.TokensEngaged, &s.TokensConsumed, &s.MaxTokens); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
		}
		return Student{}, err
	}
	return s, nil
}

func scanApplication(row rowScanner, applicationID string) (Application, error) {
	var app Application
	var status string
	if err := row.Scan(&app.ID, &app.JobID, &app.StudentID, &status, &app.CoverLetter, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, fmt.Errorf("application %s: %w", applicationID, ErrNotFound)
		}
		return Application{}, err
	}
	app.Status = ApplicationStatus(status)
	return app, nil
}

func expectOneRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
