package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-savings/models"

	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	type           TEXT NOT NULL,
	amount_usd     REAL NOT NULL,
	amount_zmw     REAL,
	status         TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	confirmed_at   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
`

const sqliteColumns = `id, user_id, type, amount_usd, amount_zmw, status, failure_reason, created_at, confirmed_at`

// SQLiteStore persists the ledger in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and applies the schema.
// Use ":memory:" for a throwaway ledger.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("sqlite store: database path is required")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts a transaction.
func (s *SQLiteStore) Append(ctx context.Context, tx models.Transaction) error {
	tx, err := prepare(tx)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Type), tx.AmountUSD, tx.AmountZMW,
		string(tx.Status), tx.FailureReason, tx.CreatedAt, tx.ConfirmedAt,
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Get loads a transaction by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// ListByUser returns the user's transactions ordered by creation time.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// UpdateStatus applies a forward-only status transition inside a database transaction.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status models.TxStatus, at int64, reason string) (models.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	tx, err := scanSQLite(dbTx.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}

	noop, err := checkTransition(tx.Status, status)
	if err != nil {
		return models.Transaction{}, err
	}
	if noop {
		return tx, nil
	}

	tx.Status = status
	tx.ConfirmedAt = &at
	if status == models.StatusFailed {
		tx.FailureReason = reason
	}

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE transactions SET status = ?, confirmed_at = ?, failure_reason = ? WHERE id = ?`,
		string(tx.Status), at, tx.FailureReason, id,
	); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to update status: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to commit status update: %w", err)
	}
	return tx, nil
}

// Clear deletes all of a user's transactions.
func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (models.Transaction, error) {
	var (
		tx          models.Transaction
		txType      string
		status      string
		amountZMW   sql.NullFloat64
		confirmedAt sql.NullInt64
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&txType,
		&tx.AmountUSD,
		&amountZMW,
		&status,
		&tx.FailureReason,
		&tx.CreatedAt,
		&confirmedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	tx.Type = models.TxType(txType)
	tx.Status = models.TxStatus(status)
	if amountZMW.Valid {
		tx.AmountZMW = &amountZMW.Float64
	}
	if confirmedAt.Valid {
		tx.ConfirmedAt = &confirmedAt.Int64
	}
	return tx, nil
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

var _ Ledger = (*SQLiteStore)(nil)
