package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

const identityKey = "auth_identity"

type identityContextKey struct{}

// IdentityMiddleware extracts a bearer token and attaches the verified
// identity to the request. It never rejects a request; enforcement happens
// downstream through the propagated session settings.
type IdentityMiddleware struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewIdentityMiddleware constructs middleware.
func NewIdentityMiddleware(tokens *TokenManager, logger *zap.Logger) *IdentityMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityMiddleware{tokens: tokens, logger: logger}
}

// Handle attaches an identity when the Authorization header carries a valid token.
func (m *IdentityMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Next()
	}

	token, ok := bearerToken(header)
	if !ok {
		m.logger.Warn("malformed authorization header", zap.String("path", c.Path()))
		return c.Next()
	}

	identity, err := m.tokens.Verify(token)
	if err != nil {
		m.logger.Warn("token verification failed",
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.Error(err))
		return c.Next()
	}

	c.Locals(identityKey, *identity)
	c.SetUserContext(ContextWithIdentity(c.UserContext(), *identity))
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// ContextWithIdentity returns a copy of ctx carrying identity.
func ContextWithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity attached to ctx, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return identity, ok
}

// IdentityFromFiber retrieves the identity stored by Handle.
func IdentityFromFiber(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// SessionSettingsFromContext derives the data-layer settings for ctx.
func SessionSettingsFromContext(ctx context.Context) domain.SessionSettings {
	if identity, ok := IdentityFromContext(ctx); ok {
		return domain.SettingsFor(&identity)
	}
	return domain.SettingsFor(nil)
}
