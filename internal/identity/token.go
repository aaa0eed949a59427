package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignerClaims are the JWT claims for a demo signer token. The subject is the
// signer's ledger address; the role claim is informational only — the ledger
// re-checks the roster on every state-changing submission.
type SignerClaims struct {
	jwt.RegisteredClaims
	Address string `json:"address"`
	Role    Role   `json:"role"`
}

// TokenIssuer issues and verifies signer tokens signed with HS256.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	issuerURL — the "iss" claim value; typically the server's base URL.
//	ttl       — token lifetime (default: 1 hour).
func NewTokenIssuer(secret []byte, issuerURL string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: secret, issuer: issuerURL, ttl: ttl}
}

// Issue creates a signed token for the given signer.
func (t *TokenIssuer) Issue(s *Signer) (string, error) {
	now := time.Now().UTC()
	claims := SignerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   s.Address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Address: s.Address,
		Role:    s.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signer token, returning its claims on success.
func (t *TokenIssuer) Verify(tokenStr string) (*SignerClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SignerClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(*SignerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
