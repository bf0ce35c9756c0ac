package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/jcpaschoal/gymhub/api/cmd/build/all"
	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/metrics"
	"github.com/jcpaschoal/gymhub/app/sdk/mux"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus/stores/admindb"
	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus/stores/reservationdb"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantcache"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantdb"
	"github.com/jcpaschoal/gymhub/business/sdk/migrate"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/jcpaschoal/gymhub/business/sdk/payment/devpay"
	"github.com/jcpaschoal/gymhub/business/sdk/payment/stripepay"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore/pgstore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore/sqlitestore"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/keystore"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var build = "develop"

type Config struct {
	Version struct {
		Build string `json:"build"`
		Desc  string `json:"desc"`
	} `json:"version"`

	Web struct {
		ReadTimeout     time.Duration `envconfig:"WEB_READ_TIMEOUT" default:"5s"`
		WriteTimeout    time.Duration `envconfig:"WEB_WRITE_TIMEOUT" default:"10s"`
		IdleTimeout     time.Duration `envconfig:"WEB_IDLE_TIMEOUT" default:"120s"`
		ShutdownTimeout time.Duration `envconfig:"WEB_SHUTDOWN_TIMEOUT" default:"20s"`
		APIHost         string        `envconfig:"WEB_API_HOST" default:"0.0.0.0:3000"`
		DebugHost       string        `envconfig:"WEB_DEBUG_HOST" default:"0.0.0.0:3010"`
	}
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
	Tenancy struct {
		DefaultSlug    string        `envconfig:"TENANCY_DEFAULT_SLUG" default:"demo-gym"`
		BaseDomain     string        `envconfig:"TENANCY_BASE_DOMAIN" default:"gymhub.localhost"`
		WarmUpLimit    int           `envconfig:"TENANCY_WARMUP_LIMIT" default:"4"`
		ReservationTTL time.Duration `envconfig:"TENANCY_RESERVATION_TTL" default:"60m"`
		SweepInterval  time.Duration `envconfig:"TENANCY_SWEEP_INTERVAL" default:"5m"`
	}
	Payment struct {
		Provider      string `envconfig:"PAYMENT_PROVIDER" default:"dev"`
		SecretKey     string `envconfig:"PAYMENT_SECRET_KEY"`
		WebhookSecret string `envconfig:"PAYMENT_WEBHOOK_SECRET"`
		SuccessURL    string `envconfig:"PAYMENT_SUCCESS_URL" default:"http://localhost:3000/registration/success"`
		CancelURL     string `envconfig:"PAYMENT_CANCEL_URL" default:"http://localhost:3000/registration/cancel"`
		DevBaseURL    string `envconfig:"PAYMENT_DEV_BASE_URL" default:"http://localhost:3000"`
	}
	Auth struct {
		KeysFolder string `envconfig:"AUTH_KEYS_FOLDER" default:"foundation/zarf/keys"`
		ActiveKID  string `envconfig:"AUTH_ACTIVE_KID" default:"54bb2165-71e1-41a6-af3e-7da4a0e1e2c1"`
		Issuer     string `envconfig:"AUTH_ISSUER" default:"gymhub auth service"`
	}
	Tempo struct {
		Host        string  `envconfig:"TEMPO_HOST" default:"tempo:4317"`
		ServiceName string  `envconfig:"TEMPO_SERVICE_NAME" default:"GYMHUB"`
		Probability float64 `envconfig:"TEMPO_PROBABILITY" default:"0.05"`
	}
}

func main() {
	var log *logger.Logger

	events := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			log.Info(ctx, "******* SEND ALERT *******")
		},
	}

	log = logger.NewWithEvents(os.Stdout, logger.LevelInfo, "GYMHUB", otel.GetTraceID, events)

	// -------------------------------------------------------------------------

	ctx := context.Background()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {

	// -------------------------------------------------------------------------
	// GOMAXPROCS

	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// -------------------------------------------------------------------------
	// Configuration

	var cfg Config

	cfg.Version.Build = build
	cfg.Version.Desc = "GYMHUB"

	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing config: %w", err)
	}

	log.Info(ctx, "startup", "version", cfg.Version)
	log.Info(ctx, "startup", "config", sanitizeConfig(cfg))

	log.Info(ctx, "starting service", "version", cfg.Version.Build)
	defer log.Info(ctx, "shutdown complete")

	log.BuildInfo(ctx)

	expvar.NewString("build").Set(cfg.Version.Build)

	// -------------------------------------------------------------------------
	// Central Database Support

	log.Info(ctx, "startup", "status", "initializing central database support", "backend", cfg.Storage.Backend)

	db, backend, err := openStorage(log, cfg)
	if err != nil {
		return err
	}

	defer db.Close()

	if _, err := migrate.Migrate(ctx, log, db, migrate.Central); err != nil {
		return fmt.Errorf("migrating central db: %w", err)
	}

	// -------------------------------------------------------------------------
	// Tenancy Support

	defaultSlug, err := slug.Parse(cfg.Tenancy.DefaultSlug)
	if err != nil {
		return fmt.Errorf("parsing default slug: %w", err)
	}

	tenantBus := tenantbus.NewCore(log, tenantcache.NewStore(log, tenantdb.NewStore(log, db), tenantcache.DefaultConfig))

	router := tenantstore.New(log, backend, tenantBus, tenantstore.Config{
		DefaultSlug: defaultSlug,
		WarmUpLimit: cfg.Tenancy.WarmUpLimit,
	})

	defer router.Close()

	cores := tenantcore.New(log)

	if err := warmUp(ctx, tenantBus, router); err != nil {
		return fmt.Errorf("warming up tenants: %w", err)
	}

	// -------------------------------------------------------------------------
	// Auth Support

	log.Info(ctx, "startup", "status", "initializing authentication support")

	ks := keystore.New()

	if _, err := ks.LoadByFileSystem(os.DirFS(cfg.Auth.KeysFolder)); err != nil {
		return fmt.Errorf("loading keys: %w", err)
	}

	adminBus := adminbus.NewCore(admindb.NewStore(log, db))

	authClient, err := auth.New(auth.Config{
		Log:       log,
		KeyLookup: ks,
		ActiveKID: cfg.Auth.ActiveKID,
		Issuer:    cfg.Auth.Issuer,
		Admins:    adminBus,
		Staff:     cores.StaffFinder,
	})
	if err != nil {
		return fmt.Errorf("constructing auth: %w", err)
	}

	// -------------------------------------------------------------------------
	// Registration Support

	provider, err := paymentProvider(cfg)
	if err != nil {
		return err
	}

	reservationBus := reservationbus.NewCore(log, reservationdb.NewStore(log, db), tenantBus,
		reservationbus.WithTTL(cfg.Tenancy.ReservationTTL))

	provisionBus := provisionbus.NewCore(provisionbus.Config{
		Log:          log,
		Central:      sqldb.NewBeginner(db),
		Tenants:      tenantBus,
		Reservations: reservationBus,
		Router:       router,
		Provider:     provider,
		Cores:        cores.Provisioning(),
		URLs: provisionbus.URLs{
			Success: cfg.Payment.SuccessURL,
			Cancel:  cfg.Payment.CancelURL,
		},
	})

	// -------------------------------------------------------------------------
	// Start Tracing Support

	log.Info(ctx, "startup", "status", "initializing tracing support")

	traceProvider, teardown, err := otel.InitTracing(log, otel.Config{
		ServiceName: cfg.Tempo.ServiceName,
		Host:        cfg.Tempo.Host,
		ExcludedRoutes: map[string]struct{}{
			"/v1/liveness":  {},
			"/v1/readiness": {},
		},
		Probability: cfg.Tempo.Probability,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}

	defer teardown(context.Background())

	tracer := traceProvider.Tracer(cfg.Tempo.ServiceName)

	// -------------------------------------------------------------------------
	// Start Debug Service

	go func() {
		log.Info(ctx, "startup", "status", "debug router started", "host", cfg.Web.DebugHost)

		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux()); err != nil {
			log.Error(ctx, "shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "msg", err)
		}
	}()

	// -------------------------------------------------------------------------
	// Start Reservation Sweeper

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()

	go sweep(sweepCtx, log, provisionBus, cfg.Tenancy.SweepInterval)

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing V1 API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	cfgMux := mux.Config{
		Build:  cfg.Version.Build,
		Log:    log,
		DB:     db,
		Tracer: tracer,
		Auth:   authClient,
		BusConfig: mux.BusConfig{
			TenantBus:      tenantBus,
			AdminBus:       adminBus,
			ReservationBus: reservationBus,
			ProvisionBus:   provisionBus,
		},
		TenancyConfig: mux.TenancyConfig{
			Router:     router,
			Cores:      cores,
			BaseDomain: cfg.Tenancy.BaseDomain,
		},
		PaymentConfig: mux.PaymentConfig{
			Provider: provider,
			DevMode:  provider.Name() == "dev",
		},
	}

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      mux.WebAPI(cfgMux, all.Routes()),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info(ctx, "startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// openStorage opens the central database and the tenant backend. With
// SQLite the registry lives next to the tenant files, with Postgres every
// tenant gets a schema in the central database.
func openStorage(log *logger.Logger, cfg Config) (*sqlx.DB, tenantstore.Backend, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating storage dir: %w", err)
		}

		db, err := sqldb.OpenSQLite(filepath.Join(cfg.Storage.Dir, "central.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to central db: %w", err)
		}

		return db, sqlitestore.New(cfg.Storage.Dir), nil

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

		db, err := sqldb.Open(dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to central db: %w", err)
		}

		return db, pgstore.New(log, db, dbCfg), nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func paymentProvider(cfg Config) (payment.Provider, error) {
	switch cfg.Payment.Provider {
	case "dev":
		return devpay.New(cfg.Payment.DevBaseURL), nil

	case "stripe":
		if cfg.Payment.SecretKey == "" || cfg.Payment.WebhookSecret == "" {
			return nil, errors.New("stripe provider needs PAYMENT_SECRET_KEY and PAYMENT_WEBHOOK_SECRET")
		}

		return stripepay.New(stripepay.Config{
			SecretKey:     cfg.Payment.SecretKey,
			WebhookSecret: cfg.Payment.WebhookSecret,
		}), nil
	}

	return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
}

// warmUp opens and migrates the storage of every ACTIVE tenant so the first
// requests do not pay for it.
func warmUp(ctx context.Context, tenantBus *tenantbus.Core, router *tenantstore.Router) error {
	ts, err := tenantBus.QueryActive(ctx, false)
	if err != nil {
		return err
	}

	slugs := make([]slug.Slug, 0, len(ts))
	for _, t := range ts {
		if t.Status == tenantstatus.Active {
			slugs = append(slugs, t.Slug)
		}
	}

	return router.WarmUp(ctx, slugs)
}

func sweep(ctx context.Context, log *logger.Logger, provisionBus *provisionbus.Core, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			ids, err := provisionBus.SweepExpired(ctx)
			if err != nil {
				log.Error(ctx, "sweeper", "msg", err)
				continue
			}

			if len(ids) > 0 {
				metrics.AddSweptReservations(ctx, len(ids))
				log.Info(ctx, "sweeper", "expired", len(ids))
			}
		}
	}
}

func debugMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /debug/vars", expvar.Handler())

	return mux
}

func sanitizeConfig(cfg Config) string {
	cfg.DB.Password = "[MASKED]"
	cfg.Payment.SecretKey = "[MASKED]"
	cfg.Payment.WebhookSecret = "[MASKED]"

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Sprintf("%+v", cfg)
	}
	return string(data)
}
