package store

import (
	"context"
	"errors"
	"fmt"

	"go-savings/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_transactions (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    type           TEXT NOT NULL,
    amount_usd     DOUBLE PRECISION NOT NULL CHECK (amount_usd >= 0),
    amount_zmw     DOUBLE PRECISION,
    status         TEXT NOT NULL,
    failure_reason TEXT NOT NULL DEFAULT '',
    created_at     BIGINT NOT NULL,
    confirmed_at   BIGINT
);
CREATE INDEX IF NOT EXISTS idx_ledger_transactions_user ON ledger_transactions (user_id, created_at);
`

const postgresColumns = `id, user_id, type, amount_usd, amount_zmw, status, failure_reason, created_at, confirmed_at`

// PostgresStore persists the ledger in Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres store: database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, tx models.Transaction) error {
	tx, err := prepare(tx)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO ledger_transactions (`+postgresColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `,
		tx.ID,
		tx.UserID,
		string(tx.Type),
		tx.AmountUSD,
		tx.AmountZMW,
		string(tx.Status),
		tx.FailureReason,
		tx.CreatedAt,
		tx.ConfirmedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Transaction, error) {
	tx, err := scanPostgres(s.pool.QueryRow(ctx, `
        SELECT `+postgresColumns+`
        FROM ledger_transactions
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, ErrNotFound
		}
		return models.Transaction{}, err
	}
	return tx, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+postgresColumns+`
        FROM ledger_transactions
        WHERE user_id = $1
        ORDER BY created_at, id
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.TxStatus, at int64, reason string) (models.Transaction, error) {
	dbTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Transaction{}, err
	}
	defer func() {
		_ = dbTx.Rollback(ctx)
	}()

	tx, err := scanPostgres(dbTx.QueryRow(ctx, `
        SELECT `+postgresColumns+`
        FROM ledger_transactions
        WHERE id = $1
        FOR UPDATE
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, ErrNotFound
		}
		return models.Transaction{}, err
	}

	noop, err := checkTransition(tx.Status, status)
	if err != nil {
		return models.Transaction{}, err
	}
	if noop {
		if err := dbTx.Commit(ctx); err != nil {
			return models.Transaction{}, err
		}
		return tx, nil
	}

	tx.Status = status
	tx.ConfirmedAt = &at
	if status == models.StatusFailed {
		tx.FailureReason = reason
	}

	_, err = dbTx.Exec(ctx,
		"UPDATE ledger_transactions SET status = $1, confirmed_at = $2, failure_reason = $3 WHERE id = $4",
		string(tx.Status), at, tx.FailureReason, id,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM ledger_transactions WHERE user_id = $1", userID)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgres(row pgx.Row) (models.Transaction, error) {
	var (
		tx     models.Transaction
		txType string
		status string
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&txType,
		&tx.AmountUSD,
		&tx.AmountZMW,
		&status,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.ConfirmedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.Type = models.TxType(txType)
	tx.Status = models.TxStatus(status)
	return tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}

var _ Ledger = (*PostgresStore)(nil)
