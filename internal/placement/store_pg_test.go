package placement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGStore{DB: db}, mock
}

func TestPGStoreWithinTxCommitsLedgerWrite(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, tokens_remaining, tokens_engaged, tokens_consumed, max_tokens\s+FROM students WHERE id = \$1 FOR UPDATE`).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tokens_remaining", "tokens_engaged", "tokens_consumed", "max_tokens"}).
			AddRow("student-1", 2, 1, 0, 3))
	mock.ExpectExec(`UPDATE students SET tokens_remaining`).
		WithArgs(1, 2, 0, "student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		s, err := tx.LockStudent(context.Background(), "student-1")
		if err != nil {
			return err
		}
		return tx.SetStudentTokens(context.Background(), s.ID, TokenUpdate{
			Remaining: s.TokensRemaining - 1,
			Engaged:   s.TokensEngaged + 1,
			Consumed:  s.TokensConsumed,
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM students WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tokens_remaining", "tokens_engaged", "tokens_consumed", "max_tokens"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		_, err := tx.LockStudent(context.Background(), "missing")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreInsertApplicationMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs("app-1", "job-1", "student-1", "PENDING", "hello", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "applications_student_job_key"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertApplication(context.Background(), Application{
			ID: "app-1", JobID: "job-1", StudentID: "student-1", Status: StatusPending,
			CoverLetter: "hello", CreatedAt: now, UpdatedAt: now,
		})
	})
	if !errors.Is(err, ErrDuplicateApplication) {
		t.Fatalf("expected ErrDuplicateApplication, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreLockCompanyUsesRequestedMode(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, interview_quota FROM companies WHERE id = \$1 FOR SHARE`).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "interview_quota"}).AddRow("company-1", 2))
	mock.ExpectQuery(`SELECT id, interview_quota FROM companies WHERE id = \$1 FOR UPDATE`).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "interview_quota"}).AddRow("company-1", 2))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		if _, err := tx.LockCompany(context.Background(), "company-1", LockShare); err != nil {
			return err
		}
		c, err := tx.LockCompany(context.Background(), "company-1", LockUpdate)
		if err != nil {
			return err
		}
		if c.InterviewQuota != 2 {
			t.Fatalf("expected quota 2, got %d", c.InterviewQuota)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreGridLockAndBookings(t *testing.T) {
	store, mock := newMockStore(t)
	slot := time.Date(2026, 1, 11, 5, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(gridLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM interviews WHERE status <> 'CANCELLED'`).
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "student_id", "date_time", "room"}).
			AddRow("company-1", "student-1", slot, "A1").
			AddRow("company-2", "student-2", slot, ""))
	mock.ExpectCommit()

	var bookings []Booking
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		if err := tx.LockGrid(context.Background()); err != nil {
			return err
		}
		var err error
		bookings, err = tx.ListBookings(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(bookings))
	}
	if bookings[0].Room != RoomA1 || bookings[1].Room != "" {
		t.Fatalf("unexpected rooms: %+v", bookings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreInsertInterviewMapsSlotConflict(t *testing.T) {
	store, mock := newMockStore(t)
	slot := time.Date(2026, 1, 11, 5, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO interviews`).
		WithArgs("iv-1", "company-1", "student-1", "app-1", "Interview: Backend", slot, "A1", "ACCEPTED", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "interviews_slot_key"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertInterview(context.Background(), Interview{
			ID: "iv-1", CompanyID: "company-1", StudentID: "student-1", ApplicationID: "app-1",
			Title: "Interview: Backend", DateTime: slot, Room: RoomA1, Status: InterviewAccepted,
			CreatedAt: time.Now().UTC(),
		})
	})
	if !errors.Is(err, ErrNoSlotAvailable) {
		t.Fatalf("expected ErrNoSlotAvailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreSetStudentTokensMapsCheckViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE students SET tokens_remaining`).
		WithArgs(-1, 0, 0, "student-1").
		WillReturnError(&pgconn.PgError{Code: "23514"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.SetStudentTokens(context.Background(), "student-1", TokenUpdate{Remaining: -1})
	})
	if !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected ErrLedgerInvariant, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreListApplicationsByCompany(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE j.company_id = \$1`).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "student_id", "status", "cover_letter", "created_at", "updated_at", "title", "company_id"}).
			AddRow("app-1", "job-1", "student-1", "PENDING", "", now, now, "Backend", "company-1"))

	items, err := store.ListApplicationsByCompany(context.Background(), "company-1")
	if err != nil {
		t.Fatalf("ListApplicationsByCompany: %v", err)
	}
	if len(items) != 1 || items[0].Status != StatusPending || items[0].JobTitle != "Backend" {
		t.Fatalf("unexpected listing: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreInsertInterviewMapsApplicationConflict(t *testing.T) {
	store, mock := newMockStore(t)
	slot := time.Date(2026, 1, 11, 5, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO interviews`).
		WithArgs("iv-2", "company-1", "student-1", "app-1", "Interview: Backend", slot, "A2", "ACCEPTED", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "interviews_application_key"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertInterview(context.Background(), Interview{
			ID: "iv-2", CompanyID: "company-1", StudentID: "student-1", ApplicationID: "app-1",
			Title: "Interview: Backend", DateTime: slot, Room: RoomA2, Status: InterviewAccepted,
			CreatedAt: time.Now().UTC(),
		})
	})
	if !errors.Is(err, ErrApplicationClosed) {
		t.Fatalf("expected ErrApplicationClosed, got %v", err)
	}
	if errors.Is(err, ErrNoSlotAvailable) {
		t.Fatalf("application conflict must not read as a slot conflict")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreInsertAndUpdateJob(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "company_id", "title", "description", "location", "is_active", "created_at"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs("job-1", "company-1", "Backend", "Go services", "Balbala", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM jobs WHERE id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("job-1", "company-1", "Backend", "Go services", "Balbala", true, now))
	mock.ExpectExec(`UPDATE jobs SET title`).
		WithArgs("Backend", "Go services", "Balbala", false, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		job := Job{ID: "job-1", CompanyID: "company-1", Title: "Backend", Description: "Go services",
			Location: "Balbala", IsActive: true, CreatedAt: now}
		if err := tx.InsertJob(context.Background(), job); err != nil {
			return err
		}
		locked, err := tx.LockJob(context.Background(), "job-1")
		if err != nil {
			return err
		}
		locked.IsActive = false
		return tx.UpdateJob(context.Background(), locked)
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreInsertJobUnknownCompany(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO jobs`).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertJob(context.Background(), Job{ID: "job-1", CompanyID: "ghost", Title: "Backend"})
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreListActiveJobsDefaultsLimit(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM jobs WHERE is_active ORDER BY created_at DESC, id LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "title", "description", "location", "is_active", "created_at"}).
			AddRow("job-2", "company-1", "Data", "", "", true, now))

	items, err := store.ListActiveJobs(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListActiveJobs: %v", err)
	}
	if len(items) != 1 || items[0].ID != "job-2" || !items[0].IsActive {
		t.Fatalf("unexpected jobs: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreSavedJobToggleStatements(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM saved_jobs WHERE student_id = \$1 AND job_id = \$2`).
		WithArgs("student-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO saved_jobs .* ON CONFLICT \(student_id, job_id\) DO NOTHING`).
		WithArgs("student-1", "job-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		removed, err := tx.DeleteSavedJob(context.Background(), "student-1", "job-1")
		if err != nil {
			return err
		}
		if removed {
			t.Fatalf("expected nothing to remove")
		}
		return tx.InsertSavedJob(context.Background(), "student-1", "job-1", now)
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreUpsertEvaluationAndRead(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM interviews WHERE company_id = \$1 AND student_id = \$2 AND status = 'COMPLETED'\)`).
		WithArgs("company-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO evaluations .* ON CONFLICT \(company_id, student_id\)`).
		WithArgs("company-1", "student-1", 8, "solid", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM evaluations WHERE company_id = \$1 AND student_id = \$2`).
		WithArgs("company-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "student_id", "rating", "comment", "created_at", "updated_at"}).
			AddRow("company-1", "student-1", 8, "solid", now, now))

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		ok, err := tx.HasCompletedInterview(context.Background(), "company-1", "student-1")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected a completed interview")
		}
		return tx.UpsertEvaluation(context.Background(), Evaluation{
			CompanyID: "company-1", StudentID: "student-1", Rating: 8, Comment: "solid", CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	ev, err := store.GetEvaluation(context.Background(), "company-1", "student-1")
	if err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}
	if ev.Rating != 8 || ev.Comment != "solid" {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
