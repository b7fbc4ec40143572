package service

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// RegisterInput is the raw registration request.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// LoginInput is the raw login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by successful register and login calls.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	credentials repository.CredentialRepository
	tokenMgr    *auth.TokenManager
	events      events.Dispatcher
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Credentials repository.CredentialRepository
	Events      events.Dispatcher
	Logger      *zap.Logger
	Tokens      *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		credentials: deps.Credentials,
		tokenMgr:    tokens,
		events:      deps.Events,
		logger:      logger,
	}
}

// Register validates input, persists the credential and issues a token.
// Missing fields are reported together before the role is looked at, and
// nothing reaches the data layer until both checks pass.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := requireFields(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Name, validation.Required),
	), "email", "password", "name"); err != nil {
		return nil, err
	}

	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.NewValidationError(apperrors.MessageInvalidRole)
	}

	user, err := s.credentials.Create(ctx, domain.Credential{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		Role:     role,
	})
	if err != nil {
		return nil, s.persistenceError("register", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.Email).ForUser(user))
	return result, nil
}

// Login verifies credentials through the data layer and issues a token. A
// miss is always reported as invalid credentials, whatever the cause.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)

	if err := requireFields(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	), "email", "password"); err != nil {
		return nil, err
	}

	user, err := s.credentials.Verify(ctx, in.Email, in.Password)
	if errors.Is(err, repository.ErrNotFound) {
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, in.Email))
		return nil, apperrors.NewUnauthorized(apperrors.MessageInvalidCredentials)
	}
	if err != nil {
		return nil, s.persistenceError("login", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.Email).ForUser(user))
	return result, nil
}

// CurrentUser loads the account selected by the session settings derived
// from the identity attached to ctx. Without one it reports not found.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	user, err := s.credentials.Current(ctx, auth.SessionSettingsFromContext(ctx))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("user")
	}
	if err != nil {
		return nil, s.persistenceError("current_user", err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.Issue(domain.Identity{
		SubjectID: user.ID,
		Role:      user.Role,
		Email:     user.Email,
	})
	if err != nil {
		s.logger.Error("token issue failed", zap.String("subject_id", user.ID), zap.Error(err))
		return nil, apperrors.NewUnexpected(err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: *user}, nil
}

// persistenceError passes recognized data-layer messages through and hides
// everything else behind the generic message.
func (s *AuthService) persistenceError(op string, err error) error {
	var storeErr *repository.StoreError
	if errors.As(err, &storeErr) {
		s.logger.Info("data layer rejected request",
			zap.String("op", op),
			zap.String("code", storeErr.Code),
			zap.String("message", storeErr.Message))
		return apperrors.NewPersistenceFault(storeErr.Message, err)
	}
	s.logger.Error("unexpected data layer failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewUnexpected(err)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// requireFields turns ozzo validation errors into one message listing the
// failed fields in the given order.
func requireFields(err error, order ...string) error {
	if err == nil {
		return nil
	}
	errs, ok := err.(validation.Errors)
	if !ok {
		return apperrors.NewUnexpected(err)
	}

	missing := make([]string, 0, len(errs))
	for _, field := range order {
		if errs[field] != nil {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewValidationError("Missing required fields: " + strings.Join(missing, ", "))
}
