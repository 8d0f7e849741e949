package pg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/integration/database/pg"
)

func TestMigrateRejectsEmptyPath(t *testing.T) {
	err := pg.Migrate(context.Background(), nil, pg.Config{}, nil)
	require.ErrorIs(t, err, pg.ErrMigrationPathNotProvided)
}

func TestMigrateRejectsMissingDir(t *testing.T) {
	cfg := pg.Config{MigrationsPath: "/no/such/directory/sessionkit-migrations"}
	err := pg.Migrate(context.Background(), nil, cfg, nil)
	require.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
}
