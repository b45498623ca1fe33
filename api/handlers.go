package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"go-savings/events"
	"go-savings/ledger"
	"go-savings/models"
	"go-savings/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionRequest struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	AmountUSD *float64 `json:"amountUSD"`
	AmountZMW *float64 `json:"amountZMW"`
	Status    string   `json:"status"`
}

type FailRequest struct {
	Reason string `json:"reason"`
}

type TransactionResponse struct {
	models.Transaction
	PublicStatus models.PublicTxStatus `json:"publicStatus"`
}

type TransactionDetailResponse struct {
	Transaction models.Transaction     `json:"transaction"`
	Lifecycle   models.TxLifecycle     `json:"lifecycle"`
	Timeline    [3]models.TimelineStep `json:"timeline"`
}

func (h *Handler) createTransaction(c *gin.Context) {
	userID := c.Param("userId")
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"Invalid request body"}})
		return
	}

	txType := models.TxType(strings.ToUpper(strings.TrimSpace(req.Type)))
	status := models.TxStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	var errs []string
	if !txType.Valid() {
		errs = append(errs, "Type must be DEPOSIT or WITHDRAW")
	}
	if req.AmountUSD == nil {
		errs = append(errs, "amountUSD is required")
	} else if *req.AmountUSD < 0 || math.IsInf(*req.AmountUSD, 0) {
		errs = append(errs, "amountUSD must be a non-negative number")
	}
	if req.AmountZMW != nil && *req.AmountZMW < 0 {
		errs = append(errs, "amountZMW must be a non-negative number")
	}
	switch status {
	case "", models.StatusPending, models.StatusConfirmed, models.StatusFailed:
	default:
		errs = append(errs, "Status must be PENDING, CONFIRMED or FAILED")
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}
	now := h.now().UnixMilli()

	tx := models.Transaction{
		ID:        id,
		UserID:    userID,
		Type:      txType,
		AmountUSD: *req.AmountUSD,
		AmountZMW: req.AmountZMW,
		Status:    status,
		CreatedAt: now,
	}
	if tx.Status == models.StatusConfirmed || tx.Status == models.StatusFailed {
		tx.ConfirmedAt = &now
	}

	if err := h.Ledger.Append(c.Request.Context(), tx); err != nil {
		h.writeStoreError(c, err)
		return
	}

	// Re-read so defaults applied by the store are reflected.
	stored, err := h.Ledger.Get(c.Request.Context(), id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	slog.Info("Transaction recorded", "id", stored.ID, "user_id", userID, "type", stored.Type, "status", stored.Status)
	h.publish(c.Request.Context(), events.TypeAppended, stored)
	c.JSON(http.StatusCreated, toTransactionResponse(stored))
}

func (h *Handler) listTransactions(c *gin.Context) {
	userID := c.Param("userId")

	transactions, err := h.Ledger.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	resp := make([]TransactionResponse, len(transactions))
	for i, tx := range transactions {
		resp[i] = toTransactionResponse(tx)
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":       userID,
		"transactions": resp,
	})
}

func (h *Handler) clearTransactions(c *gin.Context) {
	userID := c.Param("userId")
	if err := h.Ledger.Clear(c.Request.Context(), userID); err != nil {
		h.writeStoreError(c, err)
		return
	}
	slog.Info("Ledger cleared", "user_id", userID)
	c.Status(http.StatusNoContent)
}

// getBalance projects the user's ledger. A failed read degrades to the empty
// ledger so display surfaces always receive a snapshot.
func (h *Handler) getBalance(c *gin.Context) {
	userID := c.Param("userId")

	transactions, err := h.Ledger.ListByUser(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to read ledger, projecting empty balance", "error", err, "user_id", userID)
		transactions = nil
	}

	c.JSON(http.StatusOK, ledger.UserBalance(userID, transactions))
}

func (h *Handler) getTransaction(c *gin.Context) {
	tx, err := h.Ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	lc := ledger.ToLifecycleAt(tx, h.now())
	c.JSON(http.StatusOK, TransactionDetailResponse{
		Transaction: tx,
		Lifecycle:   lc,
		Timeline:    ledger.TimelineSteps(lc),
	})
}

func (h *Handler) confirmTransaction(c *gin.Context) {
	h.transition(c, models.StatusConfirmed, "")
}

func (h *Handler) failTransaction(c *gin.Context) {
	var req FailRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"Invalid request body"}})
		return
	}
	h.transition(c, models.StatusFailed, strings.TrimSpace(req.Reason))
}

func (h *Handler) transition(c *gin.Context, status models.TxStatus, reason string) {
	id := c.Param("id")
	tx, err := h.Ledger.UpdateStatus(c.Request.Context(), id, status, h.now().UnixMilli(), reason)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	slog.Info("Transaction status updated", "id", id, "status", tx.Status)
	h.publish(c.Request.Context(), events.TypeStatusChanged, tx)
	c.JSON(http.StatusOK, toTransactionResponse(tx))
}

// publish never fails the request; a lost event is logged.
func (h *Handler) publish(ctx context.Context, eventType string, tx models.Transaction) {
	if err := h.Publisher.Publish(ctx, events.NewLedgerEvent(eventType, tx, h.now())); err != nil {
		slog.Warn("Failed to publish ledger event", "error", err, "event", eventType, "id", tx.ID)
	}
}

func (h *Handler) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, store.ErrDuplicateID):
		c.JSON(http.StatusConflict, gin.H{"error": "Transaction already exists"})
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrMissingID),
		errors.Is(err, store.ErrInvalidType),
		errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{err.Error()}})
	default:
		slog.Error("Ledger store error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func toTransactionResponse(tx models.Transaction) TransactionResponse {
	return TransactionResponse{
		Transaction:  tx,
		PublicStatus: ledger.NormalizeStatus(string(tx.Status)),
	}
}
