package tokens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-backend/internal/placement"
)

func seededStore(students ...placement.Student) *placement.MemoryStore {
	store := placement.NewMemoryStore()
	for _, s := range students {
		store.PutStudent(s)
	}
	return store
}

func TestReserveMovesAvailableToEngaged(t *testing.T) {
	ctx := context.Background()
	store := seededStore(placement.Student{ID: "s1", TokensRemaining: 1, MaxTokens: 1})

	err := store.WithinTx(ctx, func(tx placement.Tx) error {
		s, err := Reserve(ctx, tx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 0, s.TokensRemaining)
		assert.Equal(t, 1, s.TokensEngaged)
		return nil
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx placement.Tx) error {
		_, err := Reserve(ctx, tx, "s1")
		return err
	})
	require.ErrorIs(t, err, placement.ErrInsufficientTokens)

	bal, err := GetBalance(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, Balance{StudentID: "s1", Remaining: 0, Engaged: 1, Consumed: 0, Max: 1}, bal)
}

func TestSettleTransitionsPreserveSum(t *testing.T) {
	ctx := context.Background()
	store := seededStore(placement.Student{ID: "s1", TokensRemaining: 1, TokensEngaged: 2, MaxTokens: 3})

	err := store.WithinTx(ctx, func(tx placement.Tx) error {
		s, err := SettleAccepted(ctx, tx, "s1")
		require.NoError(t, err)
		assert.Equal(t, placement.Student{ID: "s1", TokensRemaining: 1, TokensEngaged: 1, TokensConsumed: 1, MaxTokens: 3}, s)

		s, err = SettleReleased(ctx, tx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 2, s.TokensRemaining)
		assert.Equal(t, 0, s.TokensEngaged)
		assert.Equal(t, 1, s.TokensConsumed)
		return nil
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx placement.Tx) error {
		_, err := RefundAvailable(ctx, tx, "s1")
		return err
	})
	require.ErrorIs(t, err, placement.ErrLedgerInvariant)
}

func TestStepEveryMoveKeepsInvariant(t *testing.T) {
	start := placement.TokenUpdate{Remaining: 2, Engaged: 1, Consumed: 0}
	for _, m := range []Move{MoveReserve, MoveAccept, MoveRelease, MoveRefund} {
		next, err := Step(start, m)
		require.NoError(t, err, m.String())
		require.NoError(t, Validate(next, 3), m.String())
	}
}

func TestValidateRejectsBrokenLedger(t *testing.T) {
	assert.ErrorIs(t, Validate(placement.TokenUpdate{Remaining: -1, Engaged: 2}, 1), placement.ErrLedgerInvariant)
	assert.ErrorIs(t, Validate(placement.TokenUpdate{Remaining: 1, Engaged: 1}, 3), placement.ErrLedgerInvariant)
	assert.NoError(t, Validate(placement.TokenUpdate{Remaining: 1, Engaged: 1, Consumed: 1}, 3))
}

type recordingTx struct {
	placement.Tx
	locked []string
}

func (r *recordingTx) LockStudent(ctx context.Context, studentID string) (placement.Student, error) {
	r.locked = append(r.locked, studentID)
	return r.Tx.LockStudent(ctx, studentID)
}

func TestBatchLocksStudentsInAscendingOrder(t *testing.T) {
	ctx := context.Background()
	store := seededStore(
		placement.Student{ID: "s3", TokensEngaged: 1, MaxTokens: 1},
		placement.Student{ID: "s1", TokensEngaged: 2, MaxTokens: 2},
		placement.Student{ID: "s2", TokensEngaged: 1, MaxTokens: 1},
	)

	var rec *recordingTx
	err := store.WithinTx(ctx, func(tx placement.Tx) error {
		rec = &recordingTx{Tx: tx}
		b := NewBatch()
		b.Add("s3", MoveRelease)
		b.Add("s1", MoveAccept)
		b.Add("s2", MoveRelease)
		b.Add("s1", MoveRelease)
		assert.Equal(t, 3, b.Len())
		return b.Apply(ctx, rec)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, rec.locked)

	s1, err := store.GetStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, s1.TokensRemaining)
	assert.Equal(t, 0, s1.TokensEngaged)
	assert.Equal(t, 1, s1.TokensConsumed)
}
