package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// DefaultTokenTTL is the fixed session lifetime.
const DefaultTokenTTL = 24 * time.Hour

// ErrInvalidToken is returned for every verification failure. Callers cannot
// tell a bad signature from an expired or malformed token.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and verifying.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *tm
	clone.now = now
	return &clone
}

// Claims describes JWT payload.
type Claims struct {
	ID    string      `json:"id"`
	Role  domain.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token binding identity for the configured lifetime.
func (tm *TokenManager) Issue(identity domain.Identity) (string, time.Time, error) {
	if identity.SubjectID == "" {
		return "", time.Time{}, errors.New("issue token: empty subject")
	}
	if !identity.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue token: unrecognized role %q", identity.Role)
	}

	issuedAt := jwt.NewNumericDate(tm.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(tm.ttl))
	claims := &Claims{
		ID:    identity.SubjectID,
		Role:  identity.Role,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt.Time, nil
}

// Verify checks signature and expiry and returns the embedded identity.
func (tm *TokenManager) Verify(tokenStr string) (*domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{SubjectID: claims.ID, Role: claims.Role, Email: claims.Email}, nil
}
