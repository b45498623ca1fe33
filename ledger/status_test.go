package ledger

import (
	"strings"
	"testing"
	"time"

	"go-savings/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  models.PublicTxStatus
	}{
		{"PENDING", models.PublicPendingInit},
		{"pending_init", models.PublicPendingInit},
		{"Initiated", models.PublicPendingInit},
		{"CREATED", models.PublicPendingInit},
		{"IN_PROGRESS", models.PublicInProgress},
		{"processing", models.PublicInProgress},
		{"L2_PENDING", models.PublicInProgress},
		{"bridge_init", models.PublicInProgress},
		{"AWAITING_CONFIRMATION", models.PublicInProgress},
		{"SUCCESS", models.PublicSuccess},
		{"  Confirmed ", models.PublicSuccess},
		{"completed", models.PublicSuccess},
		{"SETTLED", models.PublicSuccess},
		{"FAILED", models.PublicFailed},
		{"rejected", models.PublicFailed},
		{"\tError\n", models.PublicFailed},
		{"REVERSED", models.PublicReversed},
		{"refunded", models.PublicReversed},
		{"CANCELLED", models.PublicReversed},
		{"EXPIRED", models.PublicExpired},
		{"timed_out", models.PublicExpired},
		{"UNKNOWN_X", models.PublicInProgress},
		{"", models.PublicInProgress},
		{"   ", models.PublicInProgress},
		{"CANCELED", models.PublicInProgress},
		{"✓ done", models.PublicInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.input))
		})
	}
}

func TestNormalizeStatus_TotalAndCaseInsensitive(t *testing.T) {
	inputs := []string{
		"", "x", "pending", "Pending", "settled ", "bridge_Init", "timed_out",
		"null", "ünïcode", "42", "FAILED\x00", "in progress", "REVERSED",
	}

	valid := make(map[models.PublicTxStatus]bool, len(models.PublicStatuses))
	for _, s := range models.PublicStatuses {
		valid[s] = true
	}

	for _, in := range inputs {
		got := NormalizeStatus(in)
		assert.True(t, valid[got], "%q mapped outside the public enum: %s", in, got)
		assert.Equal(t, got, NormalizeStatus(strings.ToUpper(in)), "%q", in)
		assert.Equal(t, got, NormalizeStatus(strings.ToLower(in)), "%q", in)
	}
}

func TestStatusFamilies_CoverEveryPublicStatus(t *testing.T) {
	require.Len(t, StatusFamilies, len(models.PublicStatuses))

	seen := make(map[InternalStatus]models.PublicTxStatus)
	for _, public := range models.PublicStatuses {
		members, ok := StatusFamilies[public]
		require.True(t, ok, "no family for %s", public)
		require.NotEmpty(t, members, "empty family for %s", public)

		for _, internal := range members {
			prev, dup := seen[internal]
			require.False(t, dup, "%s belongs to both %s and %s", internal, prev, public)
			seen[internal] = public
			assert.Equal(t, string(internal), strings.ToUpper(string(internal)), "internal statuses are stored upper-case")
		}
	}
}

func TestIndexStatusFamilies_PanicsOnOverlap(t *testing.T) {
	assert.Panics(t, func() {
		indexStatusFamilies(map[models.PublicTxStatus][]InternalStatus{
			models.PublicSuccess: {InternalSettled},
			models.PublicFailed:  {InternalSettled},
		})
	})
}

func TestToLifecycleAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-2 * time.Hour).UnixMilli()
	confirmed := now.Add(-time.Hour).UnixMilli()
	zmw := 2650.0

	tests := []struct {
		name string
		tx   models.Transaction
		want models.TxLifecycle
	}{
		{
			name: "pending has no completion",
			tx:   models.Transaction{ID: "p", Type: models.TxDeposit, AmountUSD: 100, AmountZMW: &zmw, Status: models.StatusPending, CreatedAt: created},
			want: models.TxLifecycle{ID: "p", Type: models.TxDeposit, AmountUSD: 100, AmountZMW: &zmw, Status: models.PublicPendingInit, CreatedAt: created, UpdatedAt: created},
		},
		{
			name: "confirmed uses confirmation time",
			tx:   models.Transaction{ID: "c", Type: models.TxDeposit, AmountUSD: 5, Status: models.StatusConfirmed, CreatedAt: created, ConfirmedAt: &confirmed},
			want: models.TxLifecycle{ID: "c", Type: models.TxDeposit, AmountUSD: 5, Status: models.PublicSuccess, CreatedAt: created, UpdatedAt: confirmed, CompletedAt: &confirmed},
		},
		{
			name: "terminal without confirmation falls back to now",
			tx:   models.Transaction{ID: "e", Type: models.TxWithdraw, AmountUSD: 5, Status: "expired", CreatedAt: created},
			want: models.TxLifecycle{ID: "e", Type: models.TxWithdraw, AmountUSD: 5, Status: models.PublicExpired, CreatedAt: created, UpdatedAt: created, CompletedAt: ms(now.UnixMilli())},
		},
		{
			name: "failed without reason gets the default",
			tx:   models.Transaction{ID: "f", Type: models.TxWithdraw, AmountUSD: 5, Status: models.StatusFailed, CreatedAt: created, ConfirmedAt: &confirmed},
			want: models.TxLifecycle{ID: "f", Type: models.TxWithdraw, AmountUSD: 5, Status: models.PublicFailed, CreatedAt: created, UpdatedAt: confirmed, CompletedAt: &confirmed, FailureReason: DefaultFailureReason},
		},
		{
			name: "failed keeps the recorded reason",
			tx:   models.Transaction{ID: "f2", Type: models.TxWithdraw, AmountUSD: 5, Status: "REJECTED", FailureReason: "insufficient float at agent", CreatedAt: created, ConfirmedAt: &confirmed},
			want: models.TxLifecycle{ID: "f2", Type: models.TxWithdraw, AmountUSD: 5, Status: models.PublicFailed, CreatedAt: created, UpdatedAt: confirmed, CompletedAt: &confirmed, FailureReason: "insufficient float at agent"},
		},
		{
			name: "reason is dropped unless failed",
			tx:   models.Transaction{ID: "r", Type: models.TxDeposit, AmountUSD: 5, Status: "REFUNDED", FailureReason: "stale", CreatedAt: created, ConfirmedAt: &confirmed},
			want: models.TxLifecycle{ID: "r", Type: models.TxDeposit, AmountUSD: 5, Status: models.PublicReversed, CreatedAt: created, UpdatedAt: confirmed, CompletedAt: &confirmed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToLifecycleAt(tt.tx, now))
		})
	}
}

func TestToLifecycle_DoesNotAliasConfirmedAt(t *testing.T) {
	confirmed := int64(1700000000000)
	lc := ToLifecycle(models.Transaction{ID: "x", Status: models.StatusConfirmed, CreatedAt: 1, ConfirmedAt: &confirmed})

	require.NotNil(t, lc.CompletedAt)
	*lc.CompletedAt = 0
	assert.Equal(t, int64(1700000000000), confirmed)
}
