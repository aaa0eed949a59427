package identity

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// signerContextKey is the gin context key the resolved signer is stored under.
const signerContextKey = "certledger_signer"

// CallerIdentity returns a middleware that resolves the caller's signing
// identity from either a Bearer signer token or, for curl-level demos, a
// plain X-Signer address header. An unknown or missing identity never aborts
// here — handlers on state-changing routes decide whether one is required.
func CallerIdentity(reg *Registry, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") && tokens != nil {
			if claims, err := tokens.Verify(strings.TrimPrefix(auth, "Bearer ")); err == nil {
				if s, ok := reg.Lookup(claims.Subject); ok {
					c.Set(signerContextKey, s)
				}
			}
			c.Next()
			return
		}

		if addr := c.GetHeader("X-Signer"); addr != "" {
			if s, ok := reg.Lookup(addr); ok {
				c.Set(signerContextKey, s)
			}
		}
		c.Next()
	}
}

// SignerFrom returns the signer resolved by CallerIdentity, if any.
func SignerFrom(c *gin.Context) (*Signer, bool) {
	v, ok := c.Get(signerContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Signer)
	return s, ok
}
