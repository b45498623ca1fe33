package models

// TxType is the direction of a ledger transaction
type TxType string

const (
	TxDeposit  TxType = "DEPOSIT"
	TxWithdraw TxType = "WITHDRAW"
)

// Valid reports whether t is one of the two supported directions
func (t TxType) Valid() bool {
	return t == TxDeposit || t == TxWithdraw
}

// TxStatus is the internal status string the ledger writes
type TxStatus string

const (
	StatusPending   TxStatus = "PENDING"
	StatusConfirmed TxStatus = "CONFIRMED"
	StatusFailed    TxStatus = "FAILED"
)

// Transaction represents a deposit or withdrawal recorded in the ledger
type Transaction struct {
	ID            string   `json:"id"`
	UserID        string   `json:"userId,omitempty"`
	Type          TxType   `json:"type"`
	AmountUSD     float64  `json:"amountUSD"`
	AmountZMW     *float64 `json:"amountZMW,omitempty"` // display only
	Status        TxStatus `json:"status"`
	FailureReason string   `json:"failureReason,omitempty"`
	CreatedAt     int64    `json:"createdAt"`             // ms since epoch
	ConfirmedAt   *int64   `json:"confirmedAt,omitempty"` // ms since epoch
}

// BalanceSnapshot is the projection of a ledger at a point in time
type BalanceSnapshot struct {
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	Pending   float64 `json:"pending"`
	Currency  string  `json:"currency"`
	AsOf      int64   `json:"asOf"`
}

// PublicTxStatus is the only status vocabulary shown to users
type PublicTxStatus string

const (
	PublicPendingInit PublicTxStatus = "PENDING_INIT"
	PublicInProgress  PublicTxStatus = "IN_PROGRESS"
	PublicSuccess     PublicTxStatus = "SUCCESS"
	PublicFailed      PublicTxStatus = "FAILED"
	PublicReversed    PublicTxStatus = "REVERSED"
	PublicExpired     PublicTxStatus = "EXPIRED"
)

// PublicStatuses lists every public status in display order
var PublicStatuses = []PublicTxStatus{
	PublicPendingInit,
	PublicInProgress,
	PublicSuccess,
	PublicFailed,
	PublicReversed,
	PublicExpired,
}

// IsTerminal reports whether no further transition can happen from s
func (s PublicTxStatus) IsTerminal() bool {
	switch s {
	case PublicSuccess, PublicFailed, PublicReversed, PublicExpired:
		return true
	}
	return false
}

// TxLifecycle is a transaction viewed through its public status
type TxLifecycle struct {
	ID            string         `json:"id"`
	Type          TxType         `json:"type"`
	AmountUSD     float64        `json:"amountUSD"`
	AmountZMW     *float64       `json:"amountZMW,omitempty"`
	Status        PublicTxStatus `json:"status"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
	CompletedAt   *int64         `json:"completedAt,omitempty"`
	FailureReason string         `json:"failureReason,omitempty"`
}

// TimelineStep is one entry of the three-step lifecycle timeline
type TimelineStep struct {
	Status      PublicTxStatus `json:"status"`
	Label       string         `json:"label"`
	Timestamp   *int64         `json:"timestamp,omitempty"`
	IsActive    bool           `json:"isActive"`
	IsCompleted bool           `json:"isCompleted"`
}
