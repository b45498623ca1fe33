package store

import (
	"context"
	"sort"
	"sync"

	"go-savings/models"
)

// MemoryStore holds transactions in memory
type MemoryStore struct {
	transactions map[string]models.Transaction
	byUser       map[string][]string
	mutex        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory ledger
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]models.Transaction),
		byUser:       make(map[string][]string),
	}
}

// Append adds a transaction, rejecting duplicate ids
func (s *MemoryStore) Append(_ context.Context, tx models.Transaction) error {
	tx, err := prepare(tx)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.transactions[tx.ID]; exists {
		return ErrDuplicateID
	}
	s.transactions[tx.ID] = clone(tx)
	s.byUser[tx.UserID] = append(s.byUser[tx.UserID], tx.ID)
	return nil
}

// Get retrieves a transaction by ID
func (s *MemoryStore) Get(_ context.Context, id string) (models.Transaction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	tx, exists := s.transactions[id]
	if !exists {
		return models.Transaction{}, ErrNotFound
	}
	return clone(tx), nil
}

// ListByUser retrieves all transactions for a user
func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	s.mutex.RLock()
	ids := s.byUser[userID]
	transactions := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		transactions = append(transactions, clone(s.transactions[id]))
	}
	s.mutex.RUnlock()

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt < transactions[j].CreatedAt
	})
	return transactions, nil
}

// UpdateStatus applies a forward-only status transition
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status models.TxStatus, at int64, reason string) (models.Transaction, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	tx, exists := s.transactions[id]
	if !exists {
		return models.Transaction{}, ErrNotFound
	}

	noop, err := checkTransition(tx.Status, status)
	if err != nil {
		return models.Transaction{}, err
	}
	if noop {
		return clone(tx), nil
	}

	tx.Status = status
	tx.ConfirmedAt = &at
	if status == models.StatusFailed {
		tx.FailureReason = reason
	}
	s.transactions[id] = tx
	return clone(tx), nil
}

// Clear removes all of a user's transactions
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, id := range s.byUser[userID] {
		delete(s.transactions, id)
	}
	delete(s.byUser, userID)
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

var _ Ledger = (*MemoryStore)(nil)
