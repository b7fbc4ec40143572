package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

type identityEcho struct {
	Authenticated bool   `json:"authenticated"`
	SubjectID     string `json:"subject_id"`
	Role          string `json:"role"`
	ContextRole   string `json:"context_role"`
	SettingsRole  string `json:"settings_role"`
	SettingsUser  string `json:"settings_user"`
}

func newEchoApp(t *testing.T, tm *TokenManager, logger *zap.Logger) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(NewIdentityMiddleware(tm, logger).Handle)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c)
		fromCtx, _ := IdentityFromContext(c.UserContext())
		settings := SessionSettingsFromContext(c.UserContext())
		return c.JSON(identityEcho{
			Authenticated: ok,
			SubjectID:     identity.SubjectID,
			Role:          string(identity.Role),
			ContextRole:   string(fromCtx.Role),
			SettingsRole:  settings.Role,
			SettingsUser:  settings.UserID,
		})
	})
	return app
}

func echoIdentity(t *testing.T, app *fiber.App, header string) identityEcho {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out identityEcho
	require.NoError(t, decodeJSON(resp, &out))
	return out
}

func TestIdentityMiddlewareAttachesVerifiedIdentity(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	token, _, err := tm.Issue(domain.Identity{SubjectID: "42", Role: domain.RoleAdmin})
	require.NoError(t, err)

	out := echoIdentity(t, newEchoApp(t, tm, nil), "Bearer "+token)

	assert.True(t, out.Authenticated)
	assert.Equal(t, "42", out.SubjectID)
	assert.Equal(t, "admin", out.Role)
	assert.Equal(t, "admin", out.ContextRole)
	assert.Equal(t, "app_admin", out.SettingsRole)
	assert.Equal(t, "42", out.SettingsUser)
}

func TestIdentityMiddlewareFailsOpen(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	core, logs := observer.New(zap.WarnLevel)
	app := newEchoApp(t, tm, zap.New(core))

	cases := map[string]string{
		"no header":     "",
		"wrong scheme":  "Basic dXNlcjpwYXNz",
		"garbage token": "Bearer nope",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			out := echoIdentity(t, app, header)
			assert.False(t, out.Authenticated)
			assert.Equal(t, domain.AnonymousDatabaseRole, out.SettingsRole)
			assert.Equal(t, domain.AnonymousUserID, out.SettingsUser)
		})
	}

	assert.Equal(t, 2, logs.Len())
}
