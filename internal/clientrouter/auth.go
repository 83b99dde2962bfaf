package clientrouter

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
)

// AgentClaims identifies the agent presenting a registration token.
// Grounded on the teacher's internal/services/auth.go JWTClaims shape.
type AgentClaims struct {
	jwt.RegisteredClaims
	AgentID string `json:"agentId"`
}

// TokenVerifier validates an agent's registration JWT, returning the
// agent id carried in its claims. Used by the transport layer (e.g. a
// websocket upgrade handler) before calling RegisterAgent.
type TokenVerifier struct {
	secretKey string
}

func NewTokenVerifier(secretKey string) (*TokenVerifier, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("clientrouter: jwt secret key required")
	}
	return &TokenVerifier{secretKey: secretKey}, nil
}

func (v *TokenVerifier) VerifyAgentToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", fmt.Errorf("clientrouter: empty agent token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AgentClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(v.secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("clientrouter: parse agent token: %w", err)
	}
	claims, ok := parsed.Claims.(*AgentClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("clientrouter: invalid or expired agent token")
	}
	if claims.AgentID == "" {
		return "", fmt.Errorf("clientrouter: agent token missing agentId claim")
	}
	return claims.AgentID, nil
}

func (v *TokenVerifier) IssueAgentToken(agentID string, ttl time.Duration) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("clientrouter: agentId required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := AgentClaims{
		AgentID: agentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.secretKey))
}

// ReconnectBackoff produces the exponential-backoff schedule a transport
// layer should use between dropped-connection reconnect attempts (capped,
// spec.md §4.7 offline/reconnect lifecycle).
func ReconnectBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}
