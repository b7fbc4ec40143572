package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/dto"
	"github.com/spec-kit/auth-gateway/internal/service"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// AuthHandler exposes the credential gateway over HTTP.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.MessageInvalidPayload)
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: result.Token, User: dto.NewUserResponse(result.User)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.MessageInvalidPayload)
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: result.Token, User: dto.NewUserResponse(result.User)})
}

// Me handles GET /auth/me. The route is guarded by auth.RequireIdentity.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.auth.CurrentUser(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileResponse{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role})
}
