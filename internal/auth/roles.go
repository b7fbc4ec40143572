package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/domain"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// RequireIdentity rejects requests that reached it without a verified identity.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromFiber(c); !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the identity holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c)
		if !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden("Insufficient role")
		}
		return c.Next()
	}
}
