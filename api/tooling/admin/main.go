// This program performs administrative tasks for the gym platform.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantdb"
	"github.com/jcpaschoal/gymhub/business/sdk/migrate"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore/pgstore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore/sqlitestore"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// Config holds the storage settings shared with the service.
type Config struct {
	Storage struct {
		Backend string `envconfig:"STORAGE_BACKEND" default:"sqlite"`
		Dir     string `envconfig:"STORAGE_DIR" default:"data"`
	}
	DB struct {
		User         string `envconfig:"DB_USER" default:"postgres"`
		Password     string `envconfig:"DB_PASSWORD" default:"postgres"`
		Host         string `envconfig:"DB_HOST" default:"localhost"`
		Name         string `envconfig:"DB_NAME" default:"gymhub"`
		MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"0"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"0"`
		DisableTLS   bool   `envconfig:"DB_DISABLE_TLS" default:"true"`
	}
	Auth struct {
		KeysFolder string `envconfig:"AUTH_KEYS_FOLDER" default:"foundation/zarf/keys"`
	}
}

func main() {
	log := logger.New(os.Stdout, logger.LevelInfo, "ADMIN", nil)

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the gym platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrateCmd(log),
		genKeyCmd(),
		createPlatformAdminCmd(log),
		sweepReservationsCmd(log),
		tenantStatusCmd(log, "block-tenant", "Block a gym so its requests are refused"),
		tenantStatusCmd(log, "unblock-tenant", "Reactivate a blocked gym"),
		deleteTenantCmd(log),
		migrateLegacyOfferingsCmd(log),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing config: %w", err)
	}

	return cfg, nil
}

// env is the central database and tenant router a command works with.
type env struct {
	db        *sqlx.DB
	tenantBus *tenantbus.Core
	router    *tenantstore.Router
}

func (e env) Close() {
	e.router.Close()
	e.db.Close()
}

// open connects to the central database, brings its schema up to date and
// builds the tenant router over the configured backend.
func open(ctx context.Context, log *logger.Logger) (env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return env{}, err
	}

	var db *sqlx.DB
	var backend tenantstore.Backend

	switch cfg.Storage.Backend {
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return env{}, fmt.Errorf("creating storage dir: %w", err)
		}

		db, err = sqldb.OpenSQLite(filepath.Join(cfg.Storage.Dir, "central.db"))
		if err != nil {
			return env{}, fmt.Errorf("connecting to central db: %w", err)
		}

		backend = sqlitestore.New(cfg.Storage.Dir)

	case "postgres":
		dbCfg := sqldb.Config{
			Driver:       sqldb.DriverPostgres,
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Host:         cfg.DB.Host,
			Name:         cfg.DB.Name,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			DisableTLS:   cfg.DB.DisableTLS,
		}

		db, err = sqldb.Open(dbCfg)
		if err != nil {
			return env{}, fmt.Errorf("connecting to central db: %w", err)
		}

		backend = pgstore.New(log, db, dbCfg)

	default:
		return env{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if _, err := migrate.Migrate(ctx, log, db, migrate.Central); err != nil {
		db.Close()
		return env{}, fmt.Errorf("migrating central db: %w", err)
	}

	tenantBus := tenantbus.NewCore(log, tenantdb.NewStore(log, db))

	e := env{
		db:        db,
		tenantBus: tenantBus,
		router:    tenantstore.New(log, backend, tenantBus, tenantstore.Config{}),
	}

	return e, nil
}
