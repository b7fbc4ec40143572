package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// UniqueViolation is the SQLSTATE for a unique constraint failure.
const UniqueViolation = "23505"

// ErrNotFound is returned when the data layer has no matching row.
var ErrNotFound = errors.New("credential not found")

// StoreError is a data-layer fault whose message is safe to show callers.
type StoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// translateError lifts Postgres errors into StoreError and leaves the rest untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &StoreError{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}
	return err
}
