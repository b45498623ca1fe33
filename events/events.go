// Package events publishes ledger changes to downstream consumers.
package events

import (
	"context"
	"time"

	"go-savings/ledger"
	"go-savings/models"
)

// Event types.
const (
	TypeAppended      = "transaction.appended"
	TypeStatusChanged = "transaction.status_changed"
)

// LedgerEvent describes a change to a single ledger transaction.
type LedgerEvent struct {
	Type          string                `json:"type"`
	TransactionID string                `json:"transactionId"`
	UserID        string                `json:"userId"`
	TxType        models.TxType         `json:"txType"`
	AmountUSD     float64               `json:"amountUSD"`
	Status        models.TxStatus       `json:"status"`
	PublicStatus  models.PublicTxStatus `json:"publicStatus"`
	OccurredAt    time.Time             `json:"occurredAt"`
}

// NewLedgerEvent builds an event of eventType for tx.
func NewLedgerEvent(eventType string, tx models.Transaction, at time.Time) LedgerEvent {
	return LedgerEvent{
		Type:          eventType,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		TxType:        tx.Type,
		AmountUSD:     tx.AmountUSD,
		Status:        tx.Status,
		PublicStatus:  ledger.NormalizeStatus(string(tx.Status)),
		OccurredAt:    at.UTC(),
	}
}

// Publisher delivers ledger events.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// New returns a Kafka publisher for brokers, or a NopPublisher when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
