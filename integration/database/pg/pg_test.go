package pg_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/integration/database/pg"
)

func TestConnectRejectsEmptyConnectionString(t *testing.T) {
	_, err := pg.Connect(context.Background(), pg.Config{})
	require.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

func TestConnectRejectsUnparsableConnectionString(t *testing.T) {
	cfg := pg.Config{ConnectionString: "://not-a-url", RetryAttempts: 1}
	_, err := pg.Connect(context.Background(), cfg)
	require.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.False(t, pg.IsNotFoundError(errors.New("boom")))
}

func TestIsTxClosedError(t *testing.T) {
	assert.True(t, pg.IsTxClosedError(pgx.ErrTxClosed))
	assert.False(t, pg.IsTxClosedError(errors.New("boom")))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, pg.IsDuplicateKeyError(errors.New("boom")))
}

func TestIsForeignKeyViolationError(t *testing.T) {
	assert.True(t, pg.IsForeignKeyViolationError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, pg.IsForeignKeyViolationError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, pg.IsForeignKeyViolationError(errors.New("boom")))
}
