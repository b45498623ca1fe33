package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-savings/models"
)

// InternalStatus is a status string used by the ledger or one of its providers.
type InternalStatus string

const (
	InternalPending     InternalStatus = "PENDING"
	InternalPendingInit InternalStatus = "PENDING_INIT"
	InternalInitiated   InternalStatus = "INITIATED"
	InternalCreated     InternalStatus = "CREATED"

	InternalInProgress           InternalStatus = "IN_PROGRESS"
	InternalProcessing           InternalStatus = "PROCESSING"
	InternalL2Pending            InternalStatus = "L2_PENDING"
	InternalBridgeInit           InternalStatus = "BRIDGE_INIT"
	InternalAwaitingConfirmation InternalStatus = "AWAITING_CONFIRMATION"

	InternalSuccess   InternalStatus = "SUCCESS"
	InternalConfirmed InternalStatus = "CONFIRMED"
	InternalCompleted InternalStatus = "COMPLETED"
	InternalSettled   InternalStatus = "SETTLED"

	InternalFailed   InternalStatus = "FAILED"
	InternalRejected InternalStatus = "REJECTED"
	InternalError    InternalStatus = "ERROR"

	InternalReversed  InternalStatus = "REVERSED"
	InternalRefunded  InternalStatus = "REFUNDED"
	InternalCancelled InternalStatus = "CANCELLED"

	InternalExpired  InternalStatus = "EXPIRED"
	InternalTimedOut InternalStatus = "TIMED_OUT"
)

// StatusFamilies groups every known internal status under the public status it maps to.
// Adding an internal status means adding it here; the package tests fail otherwise.
var StatusFamilies = map[models.PublicTxStatus][]InternalStatus{
	models.PublicPendingInit: {InternalPending, InternalPendingInit, InternalInitiated, InternalCreated},
	models.PublicInProgress:  {InternalInProgress, InternalProcessing, InternalL2Pending, InternalBridgeInit, InternalAwaitingConfirmation},
	models.PublicSuccess:     {InternalSuccess, InternalConfirmed, InternalCompleted, InternalSettled},
	models.PublicFailed:      {InternalFailed, InternalRejected, InternalError},
	models.PublicReversed:    {InternalReversed, InternalRefunded, InternalCancelled},
	models.PublicExpired:     {InternalExpired, InternalTimedOut},
}

// DefaultFailureReason is shown for failed transactions whose record carries no reason.
const DefaultFailureReason = "Transaction failed. Please try again or contact support."

var publicByInternal = indexStatusFamilies(StatusFamilies)

func indexStatusFamilies(families map[models.PublicTxStatus][]InternalStatus) map[InternalStatus]models.PublicTxStatus {
	index := make(map[InternalStatus]models.PublicTxStatus)
	for public, members := range families {
		for _, internal := range members {
			if prev, dup := index[internal]; dup {
				panic(fmt.Sprintf("ledger: status %s mapped to both %s and %s", internal, prev, public))
			}
			index[internal] = public
		}
	}
	return index
}

// NormalizeStatus maps an internal status onto the public vocabulary. Matching ignores
// case and surrounding whitespace. Unrecognized values become IN_PROGRESS so that an
// unknown state is never shown as a success or a failure.
func NormalizeStatus(internal string) models.PublicTxStatus {
	key := InternalStatus(strings.ToUpper(strings.TrimSpace(internal)))
	if public, ok := publicByInternal[key]; ok {
		return public
	}
	slog.Warn("Unrecognized transaction status, defaulting to in progress", "status", internal)
	return models.PublicInProgress
}

// ToLifecycle converts a transaction to its public lifecycle view.
func ToLifecycle(tx models.Transaction) models.TxLifecycle {
	return ToLifecycleAt(tx, time.Now())
}

// ToLifecycleAt is ToLifecycle with an explicit clock, used as completedAt when a
// terminal transaction has no confirmation timestamp.
func ToLifecycleAt(tx models.Transaction, now time.Time) models.TxLifecycle {
	status := NormalizeStatus(string(tx.Status))

	updatedAt := tx.CreatedAt
	if tx.ConfirmedAt != nil {
		updatedAt = *tx.ConfirmedAt
	}

	lc := models.TxLifecycle{
		ID:        tx.ID,
		Type:      tx.Type,
		AmountUSD: tx.AmountUSD,
		AmountZMW: tx.AmountZMW,
		Status:    status,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: updatedAt,
	}

	if status.IsTerminal() {
		completedAt := now.UnixMilli()
		if tx.ConfirmedAt != nil {
			completedAt = *tx.ConfirmedAt
		}
		lc.CompletedAt = &completedAt
	}

	if status == models.PublicFailed {
		lc.FailureReason = tx.FailureReason
		if lc.FailureReason == "" {
			lc.FailureReason = DefaultFailureReason
		}
	}

	return lc
}
