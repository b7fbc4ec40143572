package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

const applySessionSettings = `SELECT set_config('role', $1, true), set_config('app.current_user_id', $2, true)`

// RunAs runs fn in a transaction whose role and app.current_user_id are
// taken from settings. Both settings are transaction-local, so the pooled
// connection returns to the pool clean.
func RunAs(ctx context.Context, pool *pgxpool.Pool, settings domain.SessionSettings, fn func(pgx.Tx) error) error {
	if pool == nil {
		return ErrNotConfigured
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, applySessionSettings, settings.Role, settings.UserID); err != nil {
			return fmt.Errorf("apply session settings: %w", err)
		}
		return fn(tx)
	})
}
