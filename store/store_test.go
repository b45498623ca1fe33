package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go-savings/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(id, user string, typ models.TxType, status models.TxStatus, amount float64, createdAt int64) models.Transaction {
	return models.Transaction{
		ID:        id,
		UserID:    user,
		Type:      typ,
		Status:    status,
		AmountUSD: amount,
		CreatedAt: createdAt,
	}
}

// runLedgerSuite exercises the Ledger contract against any implementation.
func runLedgerSuite(t *testing.T, open func(t *testing.T) Ledger) {
	ctx := context.Background()

	t.Run("append and get", func(t *testing.T) {
		l := open(t)
		zmw := 265.5
		in := newTx("t1", "u1", models.TxDeposit, "", 10, 1000)
		in.AmountZMW = &zmw

		require.NoError(t, l.Append(ctx, in))

		got, err := l.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status, "empty status defaults to pending")
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, models.TxDeposit, got.Type)
		assert.Equal(t, 10.0, got.AmountUSD)
		require.NotNil(t, got.AmountZMW)
		assert.Equal(t, 265.5, *got.AmountZMW)
		assert.Nil(t, got.ConfirmedAt)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, newTx("dup", "u1", models.TxDeposit, models.StatusConfirmed, 10, 1)))

		err := l.Append(ctx, newTx("dup", "u1", models.TxDeposit, models.StatusConfirmed, 99, 2))
		require.ErrorIs(t, err, ErrDuplicateID)

		got, err := l.Get(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, 10.0, got.AmountUSD, "original record must survive")
	})

	t.Run("invalid records are rejected", func(t *testing.T) {
		l := open(t)
		assert.ErrorIs(t, l.Append(ctx, newTx("", "u1", models.TxDeposit, "", 1, 1)), ErrMissingID)
		assert.ErrorIs(t, l.Append(ctx, newTx("a", "u1", "TRANSFER", "", 1, 1)), ErrInvalidType)
		assert.ErrorIs(t, l.Append(ctx, newTx("b", "u1", models.TxDeposit, "", -1, 1)), ErrInvalidAmount)
		assert.ErrorIs(t, l.Append(ctx, newTx("c", "u1", models.TxDeposit, "SETTLED", 1, 1)), ErrInvalidStatus)

		list, err := l.ListByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("get unknown id", func(t *testing.T) {
		l := open(t)
		_, err := l.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list is scoped and ordered", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, newTx("late", "u1", models.TxDeposit, "", 1, 300)))
		require.NoError(t, l.Append(ctx, newTx("early", "u1", models.TxWithdraw, "", 2, 100)))
		require.NoError(t, l.Append(ctx, newTx("other", "u2", models.TxDeposit, "", 3, 200)))

		list, err := l.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "early", list[0].ID)
		assert.Equal(t, "late", list[1].ID)

		empty, err := l.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("forward-only transitions", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, newTx("p", "u1", models.TxWithdraw, models.StatusPending, 5, 1)))

		confirmed, err := l.UpdateStatus(ctx, "p", models.StatusConfirmed, 5000, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, confirmed.Status)
		require.NotNil(t, confirmed.ConfirmedAt)
		assert.Equal(t, int64(5000), *confirmed.ConfirmedAt)

		again, err := l.UpdateStatus(ctx, "p", models.StatusConfirmed, 9000, "")
		require.NoError(t, err, "re-confirming is a no-op")
		assert.Equal(t, int64(5000), *again.ConfirmedAt)

		_, err = l.UpdateStatus(ctx, "p", models.StatusFailed, 9000, "late failure")
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = l.UpdateStatus(ctx, "p", models.StatusPending, 9000, "")
		assert.ErrorIs(t, err, ErrInvalidStatus)

		_, err = l.UpdateStatus(ctx, "missing", models.StatusConfirmed, 1, "")
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := l.Get(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, got.Status)
		assert.Equal(t, int64(1), got.CreatedAt, "createdAt never changes")
	})

	t.Run("failure records its reason", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, newTx("f", "u1", models.TxDeposit, "", 5, 1)))

		failed, err := l.UpdateStatus(ctx, "f", models.StatusFailed, 7000, "provider declined")
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, failed.Status)
		assert.Equal(t, "provider declined", failed.FailureReason)

		got, err := l.Get(ctx, "f")
		require.NoError(t, err)
		assert.Equal(t, "provider declined", got.FailureReason)
		require.NotNil(t, got.ConfirmedAt)
		assert.Equal(t, int64(7000), *got.ConfirmedAt)
	})

	t.Run("clear removes only that user", func(t *testing.T) {
		l := open(t)
		require.NoError(t, l.Append(ctx, newTx("a", "u1", models.TxDeposit, "", 1, 1)))
		require.NoError(t, l.Append(ctx, newTx("b", "u2", models.TxDeposit, "", 1, 1)))

		require.NoError(t, l.Clear(ctx, "u1"))

		_, err := l.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = l.Get(ctx, "b")
		assert.NoError(t, err)

		// Cleared ids may be reused.
		assert.NoError(t, l.Append(ctx, newTx("a", "u1", models.TxDeposit, "", 2, 2)))
	})

	t.Run("concurrent appends of one id keep exactly one", func(t *testing.T) {
		l := open(t)
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = l.Append(ctx, newTx("race", "u1", models.TxDeposit, "", float64(i), int64(i)))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrDuplicateID)
		}
		assert.Equal(t, 1, succeeded)
	})
}

func TestMemoryStore(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T) Ledger {
		return NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Append(ctx, newTx("t", "u", models.TxDeposit, "", 1, 1)))
	_, err := s.UpdateStatus(ctx, "t", models.StatusConfirmed, 50, "")
	require.NoError(t, err)

	got, err := s.Get(ctx, "t")
	require.NoError(t, err)
	*got.ConfirmedAt = 0

	again, err := s.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(50), *again.ConfirmedAt)
}

func TestSQLiteStore(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T) Ledger {
		s, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger", "savings.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, newTx("keep", "u1", models.TxDeposit, models.StatusConfirmed, 42, 1)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.AmountUSD)
}

func TestPostgresStore(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	runLedgerSuite(t, func(t *testing.T) Ledger {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, dbURL)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, "TRUNCATE ledger_transactions")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, driver := range []string{"", "memory"} {
		l, err := Open(ctx, driver, "")
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, l)
	}

	l, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, l)
	require.NoError(t, l.Close())

	_, err = Open(ctx, "sqlite", "")
	assert.Error(t, err)

	_, err = Open(ctx, "mongo", "")
	assert.EqualError(t, err, fmt.Sprintf("unknown store driver %q", "mongo"))
}
