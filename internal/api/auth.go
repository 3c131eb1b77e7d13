package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/pkg/config"
)

// TokenService signs and verifies the bearer tokens the gateway
// hands out after a successful login.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

// NewTokenService builds a token helper with the given secret and expiry.
func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: expiry}
}

// Claims carries the operator identity inside a signed token.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a signed token for the given operator name.
func (s *TokenService) Generate(username, role string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", neterrors.New(neterrors.ErrorTypeAuth, "api.token", "token signing is not configured")
	}
	if strings.TrimSpace(username) == "" {
		return "", neterrors.New(neterrors.ErrorTypeAuth, "api.token", "username required")
	}

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		},
	}
	if s.expiry <= 0 {
		claims.ExpiresAt = nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses a token and returns the operator name embedded in it.
func (s *TokenService) Validate(token string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", neterrors.New(neterrors.ErrorTypeAuth, "api.token", "token signing is not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", neterrors.New(neterrors.ErrorTypeAuth, "api.token", "invalid token").WithCause(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", neterrors.New(neterrors.ErrorTypeAuth, "api.token", "invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", neterrors.New(neterrors.ErrorTypeAuth, "api.token", "invalid token")
	}
	return claims.Subject, nil
}

// authenticate checks a username and password against the configured
// admin account. The stored password is a bcrypt hash, never plain text.
func authenticate(cfg config.APIConfig, username, password string) error {
	if username != cfg.AdminUser || cfg.AdminPasswordHash == "" {
		return neterrors.New(neterrors.ErrorTypeAuth, "api.login", "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(password)); err != nil {
		return neterrors.New(neterrors.ErrorTypeAuth, "api.login", "invalid credentials").WithCause(err)
	}
	return nil
}
