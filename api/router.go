// Package api exposes the savings ledger over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"go-savings/events"
	"go-savings/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handler serves the ledger endpoints.
type Handler struct {
	Ledger    store.Ledger
	Publisher events.Publisher
	// Now stamps createdAt and confirmedAt; defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(h *Handler) *gin.Engine {
	if h.Publisher == nil {
		h.Publisher = events.NopPublisher{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	users := r.Group("/api/users/:userId")
	users.POST("/transactions", h.createTransaction)
	users.GET("/transactions", h.listTransactions)
	users.DELETE("/transactions", h.clearTransactions)
	users.GET("/balance", h.getBalance)

	txs := r.Group("/api/transactions/:id")
	txs.GET("", h.getTransaction)
	txs.POST("/confirm", h.confirmTransaction)
	txs.POST("/fail", h.failTransaction)

	return r
}

// requestLogger logs one line per request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
