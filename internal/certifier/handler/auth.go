package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opencertify/certledger/internal/identity"
	"go.uber.org/zap"
)

// AuthHandler exposes the demo signer roster and mints signer tokens.
// This is the HTTP face of the role/permission simulator: it stands in for a
// real authentication layer and exists so the API can be exercised without
// one.
type AuthHandler struct {
	reg    *identity.Registry
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(reg *identity.Registry, tokens *identity.TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{reg: reg, tokens: tokens, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/signers", h.ListSigners)
	rg.POST("/auth/token", h.IssueToken)
}

// ListSigners handles GET /signers.
func (h *AuthHandler) ListSigners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "signers": h.reg.List()})
}

// IssueToken handles POST /auth/token — mints a demo token for a configured
// signer. Body: {"address": "0x..."}; an empty body selects the default
// (deployer) signer.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	_ = c.ShouldBindJSON(&req)

	var signer *identity.Signer
	if req.Address == "" {
		signer = h.reg.Default()
	} else {
		s, ok := h.reg.Lookup(req.Address)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"success":  false,
				"category": "not_found",
				"message":  "unknown signer address",
			})
			return
		}
		signer = s
	}

	token, err := h.tokens.Issue(signer)
	if err != nil {
		h.logger.Error("issue signer token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":  false,
			"category": "internal",
			"message":  "failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"signer":  signer.Address,
		"role":    signer.Role,
	})
}
