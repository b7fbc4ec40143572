package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

type fakeCredentials struct {
	createCalls []domain.Credential
	verifyCalls int
	createErr   error
	verifyUser  *domain.User
	verifyErr   error

	currentCalls []domain.SessionSettings
}

func (f *fakeCredentials) Create(_ context.Context, cred domain.Credential) (*domain.User, error) {
	f.createCalls = append(f.createCalls, cred)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.User{ID: "1", Email: cred.Email, Name: cred.Name, Role: cred.Role}, nil
}

func (f *fakeCredentials) Verify(context.Context, string, string) (*domain.User, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if f.verifyUser == nil {
		return nil, repository.ErrNotFound
	}
	return f.verifyUser, nil
}

func (f *fakeCredentials) Current(_ context.Context, settings domain.SessionSettings) (*domain.User, error) {
	f.currentCalls = append(f.currentCalls, settings)
	return nil, repository.ErrNotFound
}

func (f *fakeCredentials) Ping(context.Context) error { return nil }

func newService(repo repository.CredentialRepository) (*AuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", 0)
	svc := NewAuthService(config.Config{}, AuthDependencies{Credentials: repo, Tokens: tokens})
	return svc, tokens
}

func domainErr(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	return de
}

func TestRegisterReportsAllMissingFieldsTogether(t *testing.T) {
	cases := []struct {
		name  string
		input RegisterInput
		want  string
	}{
		{"email", RegisterInput{Password: "p", Name: "A"}, "Missing required fields: email"},
		{"password", RegisterInput{Email: "a@b.com", Name: "A"}, "Missing required fields: password"},
		{"name", RegisterInput{Email: "a@b.com", Password: "p"}, "Missing required fields: name"},
		{"email and name", RegisterInput{Password: "p"}, "Missing required fields: email, name"},
		{"name and email, invalid role too", RegisterInput{Password: "p", Role: "superuser"}, "Missing required fields: email, name"},
		{"all", RegisterInput{}, "Missing required fields: email, password, name"},
		{"blank email", RegisterInput{Email: "   ", Password: "p", Name: "A"}, "Missing required fields: email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeCredentials{}
			svc, _ := newService(repo)

			_, err := svc.Register(context.Background(), tc.input)

			de := domainErr(t, err)
			assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
			assert.Equal(t, tc.want, de.Message)
			assert.Empty(t, repo.createCalls)
		})
	}
}

func TestRegisterRejectsUnknownRoleBeforePersisting(t *testing.T) {
	repo := &fakeCredentials{}
	svc, _ := newService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "p", Name: "A", Role: "superuser"})

	de := domainErr(t, err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "Invalid role specified", de.Message)
	assert.Empty(t, repo.createCalls)
}

func TestRegisterDefaultsRoleAndIssuesToken(t *testing.T) {
	repo := &fakeCredentials{}
	svc, tokens := newService(repo)

	result, err := svc.Register(context.Background(), RegisterInput{Email: " A@B.com", Password: "p", Name: "A"})
	require.NoError(t, err)

	require.Len(t, repo.createCalls, 1)
	assert.Equal(t, domain.Credential{Email: "a@b.com", Password: "p", Name: "A", Role: domain.RoleClient}, repo.createCalls[0])
	assert.Equal(t, domain.RoleClient, result.User.Role)

	identity, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "1", identity.SubjectID)
	assert.Equal(t, domain.RoleClient, identity.Role)
	assert.Equal(t, "a@b.com", identity.Email)
}

func TestRegisterMapsDataLayerFaults(t *testing.T) {
	pgErr := &pgconn.PgError{Code: repository.UniqueViolation, Message: `duplicate key value violates unique constraint "users_email_key"`}

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"recognized fault", &repository.StoreError{Code: pgErr.Code, Message: pgErr.Message, Err: pgErr}, pgErr.Message},
		{"raw failure", errors.New("dial tcp: connection refused"), "An unexpected error occurred"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(&fakeCredentials{createErr: tc.err})

			_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "p", Name: "A"})

			de := domainErr(t, err)
			assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
			assert.Equal(t, tc.want, de.Message)
		})
	}
}

func TestLoginInvalidCredentialsIsUniform(t *testing.T) {
	repo := &fakeCredentials{}
	svc, _ := newService(repo)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "wrong"})

	de := domainErr(t, err)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.Equal(t, "Invalid credentials", de.Message)
	assert.Equal(t, 1, repo.verifyCalls)
}

func TestLoginIndistinguishableAgainstRealStore(t *testing.T) {
	repo := repository.NewMemoryCredentialRepository(bcrypt.MinCost)
	svc, _ := newService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "p", Name: "A"})
	require.NoError(t, err)

	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "nobody@b.com", Password: "p"})
	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "x"})

	assert.Equal(t, domainErr(t, unknownEmail).Message, domainErr(t, wrongPassword).Message)
	assert.Equal(t, domainErr(t, unknownEmail).HTTPStatus, domainErr(t, wrongPassword).HTTPStatus)

	result, err := svc.Login(ctx, LoginInput{Email: "A@b.com", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", result.User.Email)
}

func TestLoginMissingFields(t *testing.T) {
	repo := &fakeCredentials{}
	svc, _ := newService(repo)

	_, err := svc.Login(context.Background(), LoginInput{})

	de := domainErr(t, err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "Missing required fields: email, password", de.Message)
	assert.Zero(t, repo.verifyCalls)
}

func TestLoginDataLayerFaultIsGeneric(t *testing.T) {
	svc, _ := newService(&fakeCredentials{verifyErr: errors.New("Database error")})

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "p"})

	de := domainErr(t, err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "An unexpected error occurred", de.Message)
}

func TestGatewayPublishesAuditEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	repo := repository.NewMemoryCredentialRepository(bcrypt.MinCost)
	svc := NewAuthService(config.Config{}, AuthDependencies{
		Credentials: repo,
		Events:      dispatcher,
		Tokens:      auth.NewTokenManager("test-secret", 0),
	})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "p", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "p"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "bad"})
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("UserRegistered").Len())
	assert.Equal(t, 1, logs.FilterMessage("UserLoggedIn").Len())
	assert.Equal(t, 1, logs.FilterMessage("LoginFailed").Len())
}

func TestCurrentUserUsesContextSettings(t *testing.T) {
	repo := &fakeCredentials{}
	svc, _ := newService(repo)

	ctx := auth.ContextWithIdentity(context.Background(), domain.Identity{SubjectID: "5", Role: domain.RoleClient})
	_, err := svc.CurrentUser(ctx)
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)

	_, err = svc.CurrentUser(context.Background())
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)

	assert.Equal(t, []domain.SessionSettings{
		{Role: "app_client", UserID: "5"},
		{Role: domain.AnonymousDatabaseRole, UserID: domain.AnonymousUserID},
	}, repo.currentCalls)
}

func TestCurrentUserReturnsStoredAccount(t *testing.T) {
	repo := repository.NewMemoryCredentialRepository(bcrypt.MinCost)
	svc, _ := newService(repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "p", Name: "A"})
	require.NoError(t, err)

	user, err := svc.CurrentUser(auth.ContextWithIdentity(ctx, domain.Identity{SubjectID: registered.User.ID, Role: domain.RoleClient}))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
}
