package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opencertify/certledger/internal/certifier/model"
	"github.com/opencertify/certledger/internal/certifier/service"
	"github.com/opencertify/certledger/internal/identity"
	"go.uber.org/zap"
)

// CertificateHandler exposes the certificate write/read/invalidate/repair
// endpoints. Route names and response envelopes match the public API:
// every response carries "success", failures add a stable "category" and a
// human-readable "message".
type CertificateHandler struct {
	svc    *service.CertificateService
	logger *zap.Logger
}

// NewCertificateHandler creates a CertificateHandler.
func NewCertificateHandler(svc *service.CertificateService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{svc: svc, logger: logger}
}

// Register mounts the certificate routes on the given router group.
func (h *CertificateHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/addCertificate", h.AddCertificate)
	rg.GET("/getCertificate/:id", h.GetCertificate)
	rg.POST("/invalidateCertificate/:id", h.InvalidateCertificate)
	rg.POST("/repairCertificate/:id", h.RepairCertificate)
}

// AddCertificate handles POST /addCertificate.
func (h *CertificateHandler) AddCertificate(c *gin.Context) {
	signer, ok := identity.SignerFrom(c)
	if !ok {
		h.writeError(c, model.ErrPermissionDenied)
		return
	}

	var req model.AddCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, &model.ErrValidation{Msg: "invalid request body: " + err.Error()})
		return
	}

	receipt, err := h.svc.AddOrUpdate(c.Request.Context(), signer.Address, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	certCommitsTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"txHash":   receipt.TxHash,
		"gasUsed":  receipt.GasUsed,
		"gasLimit": receipt.GasLimit,
	})
}

// GetCertificate handles GET /getCertificate/:id.
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if !detail.IsValid {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "certificate found but is marked invalid",
			"data":    detail,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

// InvalidateCertificate handles POST /invalidateCertificate/:id.
func (h *CertificateHandler) InvalidateCertificate(c *gin.Context) {
	signer, ok := identity.SignerFrom(c)
	if !ok {
		h.writeError(c, model.ErrPermissionDenied)
		return
	}

	receipt, err := h.svc.Invalidate(c.Request.Context(), signer.Address, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	certInvalidationsTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "txHash": receipt.TxHash})
}

// RepairCertificate handles POST /repairCertificate/:id — re-reads the
// ledger and re-syncs the store's validity mirror.
func (h *CertificateHandler) RepairCertificate(c *gin.Context) {
	if _, ok := identity.SignerFrom(c); !ok {
		h.writeError(c, model.ErrPermissionDenied)
		return
	}

	result, err := h.svc.Repair(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if result.Repaired {
		certRepairsTotal.Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"repaired": result.Repaired,
		"isValid":  result.IsValid,
	})
}

// writeError maps a classified engine error onto the HTTP surface.
func (h *CertificateHandler) writeError(c *gin.Context, err error) {
	var (
		ve  *model.ErrValidation
		rej *model.ErrRejected
	)

	status := http.StatusInternalServerError
	category := "internal"

	switch {
	case errors.As(err, &ve):
		status, category = http.StatusBadRequest, "validation_error"
	case errors.Is(err, model.ErrPermissionDenied):
		status, category = http.StatusForbidden, "permission_denied"
	case errors.Is(err, model.ErrNotFound):
		status, category = http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrAlreadyInvalid):
		status, category = http.StatusConflict, "already_invalid"
	case errors.As(err, &rej):
		status, category = http.StatusBadRequest, "rejected"
	case errors.Is(err, model.ErrInconsistency):
		status, category = http.StatusInternalServerError, "inconsistency"
		certInconsistenciesTotal.Inc()
	case errors.Is(err, model.ErrIntegrityViolation):
		status, category = http.StatusInternalServerError, "integrity_violation"
		certIntegrityFailuresTotal.Inc()
	case errors.Is(err, model.ErrLedgerUnavailable):
		status, category = http.StatusServiceUnavailable, "ledger_unavailable"
	case errors.Is(err, model.ErrStoreUnavailable):
		status, category = http.StatusServiceUnavailable, "store_unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("category", category), zap.Error(err))
	}
	certErrorsTotal.WithLabelValues(category).Inc()

	c.JSON(status, gin.H{
		"success":  false,
		"category": category,
		"message":  err.Error(),
	})
}
