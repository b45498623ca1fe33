// Package ledger projects balances and lifecycle views from ledger transactions.
//
// Every function in this package is pure over its input: the transaction slice is
// read, never modified, and each call allocates its own result, so callers may
// invoke them concurrently without coordination.
package ledger

import (
	"math"
	"time"

	"go-savings/models"

	"github.com/shopspring/decimal"
)

// Currency is the unit every balance is expressed in
const Currency = "USD"

// ComputeBalance reduces transactions into a balance snapshot stamped with the current time.
func ComputeBalance(transactions []models.Transaction) models.BalanceSnapshot {
	return ComputeBalanceAt(transactions, time.Now())
}

// UserBalance projects the balance for userID. No per-user filtering happens yet;
// the caller is expected to pass only that user's transactions.
func UserBalance(userID string, transactions []models.Transaction) models.BalanceSnapshot {
	return ComputeBalance(transactions)
}

// ComputeBalanceAt is ComputeBalance with an explicit asOf time.
//
// Failed transactions have no effect. Confirmed deposits add to available and
// confirmed withdrawals subtract from it. Pending deposits are reported as pending,
// pending withdrawals hold funds: they leave available immediately and count
// against pending. Any other status is ignored.
func ComputeBalanceAt(transactions []models.Transaction, now time.Time) models.BalanceSnapshot {
	available := decimal.Zero
	pendingDeposits := decimal.Zero
	pendingWithdrawals := decimal.Zero

	for _, tx := range transactions {
		if tx.Status == models.StatusFailed {
			continue
		}
		amount := usd(tx.AmountUSD)

		switch tx.Type {
		case models.TxDeposit:
			switch tx.Status {
			case models.StatusConfirmed:
				available = available.Add(amount)
			case models.StatusPending:
				pendingDeposits = pendingDeposits.Add(amount)
			}
		case models.TxWithdraw:
			switch tx.Status {
			case models.StatusConfirmed:
				available = available.Sub(amount)
			case models.StatusPending:
				available = available.Sub(amount)
				pendingWithdrawals = pendingWithdrawals.Add(amount)
			}
		}
	}

	if available.IsNegative() {
		available = decimal.Zero
	}

	return models.BalanceSnapshot{
		Total:     round2(available.Add(pendingDeposits)),
		Available: round2(available),
		Pending:   round2(pendingDeposits.Sub(pendingWithdrawals)),
		Currency:  Currency,
		AsOf:      now.UnixMilli(),
	}
}

// usd converts an amount to a decimal. Non-finite amounts contribute nothing
// because decimal.NewFromFloat panics on them.
func usd(amount float64) decimal.Decimal {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount)
}

// round2 rounds half away from zero to two decimals.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
