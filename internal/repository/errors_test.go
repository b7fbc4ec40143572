package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateErrorLiftsPgErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: UniqueViolation, Message: `duplicate key value violates unique constraint "users_email_key"`}

	err := translateError(fmt.Errorf("insert: %w", pgErr))

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, UniqueViolation, storeErr.Code)
	assert.Equal(t, pgErr.Message, storeErr.Error())
	assert.ErrorIs(t, err, pgErr)
}

func TestTranslateErrorPassesOthersThrough(t *testing.T) {
	plain := errors.New("connection reset")

	assert.Same(t, plain, translateError(plain))
	assert.NoError(t, translateError(nil))
}
