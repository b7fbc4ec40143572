package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/persistence"
)

// CredentialRepository is the data-layer boundary for accounts. Hashing and
// uniqueness are the store's job.
type CredentialRepository interface {
	// Create inserts a credential and returns the stored projection.
	Create(ctx context.Context, cred domain.Credential) (*domain.User, error)
	// Verify checks email and password in one call. It returns ErrNotFound
	// when nothing matches, without saying which part was wrong.
	Verify(ctx context.Context, email, password string) (*domain.User, error)
	// Current loads the user selected by the session settings.
	Current(ctx context.Context, settings domain.SessionSettings) (*domain.User, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Create(ctx context.Context, cred domain.Credential) (*domain.User, error) {
	const query = `
        INSERT INTO app_public.users (email, password_hash, role, name)
        VALUES ($1, app_private.hash_password($2), $3, $4)
        RETURNING id::text, email, role, name, created_at`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query,
		cred.Email,
		cred.Password,
		cred.Role,
		cred.Name,
	).Scan(&user.ID, &user.Email, &user.Role, &user.Name, &user.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *credentialRepository) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	const query = `SELECT id::text, email, role, name FROM app_private.verify_password($1, $2)`

	var id, mail, role, name *string
	err := r.pool.QueryRow(ctx, query, email, password).Scan(&id, &mail, &role, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	if id == nil {
		return nil, ErrNotFound
	}

	user := &domain.User{ID: *id}
	if mail != nil {
		user.Email = *mail
	}
	if role != nil {
		user.Role = domain.Role(*role)
	}
	if name != nil {
		user.Name = *name
	}
	return user, nil
}

func (r *credentialRepository) Current(ctx context.Context, settings domain.SessionSettings) (*domain.User, error) {
	const query = `
        SELECT id::text, email, role, name, created_at
        FROM app_public.users
        WHERE id = nullif(current_setting('app.current_user_id', true), '')::integer`

	var user domain.User
	err := persistence.RunAs(ctx, r.pool, settings, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query).Scan(&user.ID, &user.Email, &user.Role, &user.Name, &user.CreatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *credentialRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return persistence.ErrNotConfigured
	}
	return r.pool.Ping(ctx)
}
