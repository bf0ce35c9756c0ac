package migrate_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/jcpaschoal/gymhub/business/sdk/migrate"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MigrateIsIdempotent(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)
	ctx := context.Background()

	for _, set := range []migrate.Set{migrate.Central, migrate.Tenant} {
		t.Run(string(set), func(t *testing.T) {
			db, err := sqldb.OpenSQLite(filepath.Join(t.TempDir(), "db.sqlite"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })

			applied, err := migrate.Migrate(ctx, log, db, set)
			require.NoError(t, err)
			assert.Equal(t, 3, applied)

			v, err := migrate.Version(ctx, db)
			require.NoError(t, err)
			assert.Equal(t, 3, v)

			applied, err = migrate.Migrate(ctx, log, db, set)
			require.NoError(t, err)
			assert.Zero(t, applied)
		})
	}
}
