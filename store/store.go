package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go-savings/models"
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrDuplicateID       = errors.New("duplicate transaction id")
	ErrMissingID         = errors.New("transaction id is required")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidAmount     = errors.New("amount must be a non-negative number")
	ErrInvalidStatus     = errors.New("invalid transaction status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Ledger owns the transaction list. It guarantees unique ids and forward-only
// status transitions; readers get point-in-time copies.
type Ledger interface {
	// Append records a new transaction. An empty status is stored as PENDING.
	Append(ctx context.Context, tx models.Transaction) error
	Get(ctx context.Context, id string) (models.Transaction, error)
	// ListByUser returns the user's transactions ordered by creation time.
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	// UpdateStatus moves a PENDING transaction to CONFIRMED or FAILED and stamps
	// confirmedAt. Re-applying the current terminal status is a no-op.
	UpdateStatus(ctx context.Context, id string, status models.TxStatus, at int64, reason string) (models.Transaction, error)
	// Clear removes every transaction owned by userID.
	Clear(ctx context.Context, userID string) error
	Close() error
}

// Open returns the ledger store for driver: memory, sqlite or postgres.
func Open(ctx context.Context, driver, dsn string) (Ledger, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// prepare validates tx for insertion and fills defaults.
func prepare(tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		return tx, ErrMissingID
	}
	if !tx.Type.Valid() {
		return tx, fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}
	if tx.AmountUSD < 0 || math.IsNaN(tx.AmountUSD) || math.IsInf(tx.AmountUSD, 0) {
		return tx, fmt.Errorf("%w: %v", ErrInvalidAmount, tx.AmountUSD)
	}
	switch tx.Status {
	case "":
		tx.Status = models.StatusPending
	case models.StatusPending, models.StatusConfirmed, models.StatusFailed:
	default:
		return tx, fmt.Errorf("%w: %q", ErrInvalidStatus, tx.Status)
	}
	return tx, nil
}

// checkTransition reports whether moving from current to next is a no-op, or an
// error when the move is not allowed.
func checkTransition(current, next models.TxStatus) (noop bool, err error) {
	if next != models.StatusConfirmed && next != models.StatusFailed {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if current == next {
		return true, nil
	}
	if current != models.StatusPending {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
	}
	return false, nil
}

func clone(tx models.Transaction) models.Transaction {
	if tx.AmountZMW != nil {
		v := *tx.AmountZMW
		tx.AmountZMW = &v
	}
	if tx.ConfirmedAt != nil {
		v := *tx.ConfirmedAt
		tx.ConfirmedAt = &v
	}
	return tx
}
