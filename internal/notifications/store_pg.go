package notifications

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PGSink stores notifications in Postgres.
type PGSink struct {
	DB *sql.DB
}

// NewPGSink constructs a Postgres-backed sink.
func NewPGSink(db *sql.DB) *PGSink {
	return &PGSink{DB: db}
}

func (s *PGSink) Notify(ctx context.Context, userID, title, message string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO notifications (id, user_id, title, message, created_at)
VALUES ($1, $2, $3, $4, $5)`, uuid.NewString(), userID, title, message, time.Now().UTC())
	return err
}

func (s *PGSink) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, title, message, created_at, read_at
FROM notifications WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PGSink) MarkRead(ctx context.Context, userID, notificationID string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE notifications SET read_at = COALESCE(read_at, $1)
WHERE id = $2 AND user_id = $3`, at, notificationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGSink) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
UPDATE notifications SET read_at = $1 WHERE user_id = $2 AND read_at IS NULL`, at, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PGSink) Delete(ctx context.Context, userID, notificationID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
