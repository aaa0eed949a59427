package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opencertify/certledger/internal/ledger"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only HTTP endpoints over the certificate ledger.
type LedgerHandler struct {
	ledger  ledger.Ledger
	backend string
	logger  *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler. backend names the configured
// ledger implementation ("memory" or "postgres") for the overview endpoint.
func NewLedgerHandler(l ledger.Ledger, backend string, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: l, backend: backend, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/commitments/:id", h.History)
	}
}

// Overview handles GET /ledger — returns the total number of commits.
func (h *LedgerHandler) Overview(c *gin.Context) {
	height, err := h.ledger.Height(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger height", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":  false,
			"category": "ledger_unavailable",
			"message":  "failed to query ledger",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "height": height, "backend": h.backend})
}

// History handles GET /ledger/commitments/:id — the append-only commit
// history for one certificate, oldest first.
func (h *LedgerHandler) History(c *gin.Context) {
	id := c.Param("id")
	commits, err := h.ledger.History(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("ledger history", zap.String("certificate_id", id), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":  false,
			"category": "ledger_unavailable",
			"message":  "failed to query ledger",
		})
		return
	}
	if len(commits) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success":  false,
			"category": "not_found",
			"message":  "no commitments recorded for " + id,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "commitments": commits})
}
