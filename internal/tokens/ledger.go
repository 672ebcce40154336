package tokens

import (
	"context"
	"fmt"
	"sort"

	"placement-backend/internal/placement"
)

// Move is one transition of a single token between ledger buckets.
type Move int

const (
	// MoveReserve takes an available token and engages it against a new application.
	MoveReserve Move = iota
	// MoveAccept finalizes an engaged token when its application is accepted.
	MoveAccept
	// MoveRelease returns an engaged token to the available bucket after a rejection or cancellation.
	MoveRelease
	// MoveRefund returns the token of a withdrawn PENDING application.
	MoveRefund
)

func (m Move) String() string {
	switch m {
	case MoveReserve:
		return "reserve"
	case MoveAccept:
		return "accept"
	case MoveRelease:
		return "release"
	case MoveRefund:
		return "refund"
	default:
		return fmt.Sprintf("move(%d)", int(m))
	}
}

// Balance is the read model of a student's ledger.
type Balance struct {
	StudentID string `json:"studentId"`
	Remaining int    `json:"tokensRemaining"`
	Engaged   int    `json:"tokensEngaged"`
	Consumed  int    `json:"tokensConsumed"`
	Max       int    `json:"maxTokens"`
}

// Reserve locks the student row and engages one available token.
func Reserve(ctx context.Context, tx placement.Tx, studentID string) (placement.Student, error) {
	return apply(ctx, tx, studentID, MoveReserve)
}

// SettleAccepted consumes the engaged token of an accepted application.
func SettleAccepted(ctx context.Context, tx placement.Tx, studentID string) (placement.Student, error) {
	return apply(ctx, tx, studentID, MoveAccept)
}

// SettleReleased frees the engaged token of a rejected or cancelled application.
func SettleReleased(ctx context.Context, tx placement.Tx, studentID string) (placement.Student, error) {
	return apply(ctx, tx, studentID, MoveRelease)
}

// RefundAvailable frees the engaged token of a withdrawn application.
func RefundAvailable(ctx context.Context, tx placement.Tx, studentID string) (placement.Student, error) {
	return apply(ctx, tx, studentID, MoveRefund)
}

// GetBalance reads a non-locking snapshot of the student's ledger.
func GetBalance(ctx context.Context, r placement.Reader, studentID string) (Balance, error) {
	s, err := r.GetStudent(ctx, studentID)
	if err != nil {
		return Balance{}, err
	}
	return balanceOf(s), nil
}

func balanceOf(s placement.Student) Balance {
	return Balance{
		StudentID: s.ID,
		Remaining: s.TokensRemaining,
		Engaged:   s.TokensEngaged,
		Consumed:  s.TokensConsumed,
		Max:       s.MaxTokens,
	}
}

func apply(ctx context.Context, tx placement.Tx, studentID string, moves ...Move) (placement.Student, error) {
	s, err := tx.LockStudent(ctx, studentID)
	if err != nil {
		return placement.Student{}, err
	}
	update := placement.TokenUpdate{
		Remaining: s.TokensRemaining,
		Engaged:   s.TokensEngaged,
		Consumed:  s.TokensConsumed,
	}
	for _, m := range moves {
		if update, err = Step(update, m); err != nil {
			return placement.Student{}, fmt.Errorf("student %s %s: %w", studentID, m, err)
		}
	}
	if err := Validate(update, s.MaxTokens); err != nil {
		return placement.Student{}, fmt.Errorf("student %s: %w", studentID, err)
	}
	if err := tx.SetStudentTokens(ctx, studentID, update); err != nil {
		return placement.Student{}, err
	}
	s.TokensRemaining = update.Remaining
	s.TokensEngaged = update.Engaged
	s.TokensConsumed = update.Consumed
	return s, nil
}

// Step applies one move to u. Reserve on an empty available bucket fails with
// ErrInsufficientTokens; any move that would drain an empty bucket fails with
// ErrLedgerInvariant.
func Step(u placement.TokenUpdate, m Move) (placement.TokenUpdate, error) {
	switch m {
	case MoveReserve:
		if u.Remaining <= 0 {
			return u, placement.ErrInsufficientTokens
		}
		u.Remaining--
		u.Engaged++
	case MoveAccept:
		if u.Engaged <= 0 {
			return u, placement.ErrLedgerInvariant
		}
		u.Engaged--
		u.Consumed++
	case MoveRelease, MoveRefund:
		if u.Engaged <= 0 {
			return u, placement.ErrLedgerInvariant
		}
		u.Engaged--
		u.Remaining++
	default:
		return u, fmt.Errorf("unknown move %d: %w", int(m), placement.ErrLedgerInvariant)
	}
	return u, nil
}

// Validate checks every bucket is non-negative and the buckets sum to maxTokens.
func Validate(u placement.TokenUpdate, maxTokens int) error {
	if u.Remaining < 0 || u.Engaged < 0 || u.Consumed < 0 {
		return fmt.Errorf("negative bucket %+v: %w", u, placement.ErrLedgerInvariant)
	}
	if u.Remaining+u.Engaged+u.Consumed != maxTokens {
		return fmt.Errorf("buckets %+v do not sum to %d: %w", u, maxTokens, placement.ErrLedgerInvariant)
	}
	return nil
}

// Batch accumulates moves for several students and writes them in ascending
// student id order, one locked read-modify-write per student.
type Batch struct {
	moves map[string][]Move
}

// NewBatch constructs an empty Batch.
func NewBatch() *Batch {
	return &Batch{moves: make(map[string][]Move)}
}

// Add queues a move for studentID.
func (b *Batch) Add(studentID string, m Move) {
	b.moves[studentID] = append(b.moves[studentID], m)
}

// Len reports how many students the batch touches.
func (b *Batch) Len() int {
	return len(b.moves)
}

// Apply writes every queued move inside tx.
func (b *Batch) Apply(ctx context.Context, tx placement.Tx) error {
	ids := make([]string, 0, len(b.moves))
	for id := range b.moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := apply(ctx, tx, id, b.moves[id]...); err != nil {
			return err
		}
	}
	return nil
}
