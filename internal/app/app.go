package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/metinatakli/cinefeed/internal/catalog"
	"github.com/metinatakli/cinefeed/internal/connectivity"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/favorites"
	"github.com/metinatakli/cinefeed/internal/repository"
	appvalidator "github.com/metinatakli/cinefeed/internal/validator"
	"github.com/metinatakli/cinefeed/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const serviceName = "cinefeed-api"

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	catalog   domain.CatalogClient
	gate      domain.ConnectivityGate
	pageCache domain.PageCache
	favorites *favorites.Store
	feeds     *feedRegistry
}

type Config struct {
	Port             int
	Env              string
	DB               DBConfig
	Redis            RedisConfig
	Catalog          CatalogConfig
	Connectivity     ConnectivityConfig
	Session          SessionConfig
	Telemetry        TelemetryConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type CatalogConfig struct {
	URL      string
	APIKey   string
	Language string
	Timeout  time.Duration
	Attempts uint
	CacheTTL time.Duration
}

type ConnectivityConfig struct {
	Target   string
	Interval time.Duration
}

type SessionConfig struct {
	IdleTimeout time.Duration
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redis redis.UniversalClient,
	validator *validator.Validate,
	sessionManager *scs.SessionManager,
	catalog domain.CatalogClient,
	gate domain.ConnectivityGate,
	pageCache domain.PageCache,
	favoriteStore *favorites.Store) *Application {

	app := &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redis,
		validator:      validator,
		sessionManager: sessionManager,
		catalog:        catalog,
		gate:           gate,
		pageCache:      pageCache,
		favorites:      favoriteStore,
	}

	app.feeds = newFeedRegistry(app.newFeedController, sessionIdleTimeout(cfg), logger)

	return app
}

func Run() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var cfg Config

	flag.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	flag.StringVar(&cfg.Env, "env", envString("ENV", "dev"), "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", envString("DB_DSN", ""), "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", envString("REDIS_URL", ""), "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.Catalog.URL, "catalog-url", envString("CATALOG_URL", catalog.DefaultBaseURL), "Movie catalog API base URL")
	flag.StringVar(&cfg.Catalog.APIKey, "catalog-api-key", envString("CATALOG_API_KEY", ""), "Movie catalog API key")
	flag.StringVar(&cfg.Catalog.Language, "catalog-language", envString("CATALOG_LANGUAGE", catalog.DefaultLanguage), "Movie catalog response language")
	flag.DurationVar(&cfg.Catalog.Timeout, "catalog-timeout", catalog.DefaultTimeout, "Movie catalog request timeout")
	flag.UintVar(&cfg.Catalog.Attempts, "catalog-attempts", catalog.DefaultAttempts, "Movie catalog attempts per request")
	flag.DurationVar(&cfg.Catalog.CacheTTL, "cache-ttl", catalog.DefaultCacheTTL, "Lifetime of cached catalog pages")

	flag.StringVar(&cfg.Connectivity.Target, "connectivity-target", envString("CONNECTIVITY_TARGET", ""), "host:port probed for connectivity (defaults to the catalog host)")
	flag.DurationVar(&cfg.Connectivity.Interval, "connectivity-interval", connectivity.DefaultInterval, "Connectivity probe interval")

	flag.DurationVar(&cfg.Session.IdleTimeout, "session-idle-timeout", 20*time.Minute, "Idle time after which a browsing session and its feed are dropped")

	flag.StringVar(&cfg.Telemetry.CollectorURL, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")
	flag.BoolVar(&cfg.Telemetry.Insecure, "otel-insecure", true, "Export telemetry without TLS")
	flag.Float64Var(&cfg.Telemetry.SampleRatio, "otel-sample-ratio", 1, "Fraction of new traces to sample")
	flag.DurationVar(&cfg.Telemetry.MetricInterval, "otel-metric-interval", 15*time.Second, "Metric export interval")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	textHandler := slog.NewTextHandler(os.Stdout, nil)
	logger := slog.New(textHandler)

	shutdownTelemetry, err := initTelemetry(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.Telemetry.Enabled() {
		logger = slog.New(newTeeHandler(textHandler, otelslog.NewHandler(serviceName)))
	}

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL:  cfg.Catalog.URL,
		APIKey:   cfg.Catalog.APIKey,
		Language: cfg.Catalog.Language,
		Timeout:  cfg.Catalog.Timeout,
		Attempts: cfg.Catalog.Attempts,
	}, nil, logger.With("component", "catalog"))

	target, err := connectivityTarget(cfg)
	if err != nil {
		return err
	}

	gate := connectivity.NewGate(
		connectivity.DialProbe(target, cfg.Connectivity.Interval/2),
		cfg.Connectivity.Interval,
		logger.With("component", "connectivity"),
	)

	favoriteRepo := repository.NewPostgresFavoriteRepository(db)
	favoriteStore := favorites.NewStore(favoriteRepo, logger.With("component", "favorites"))
	defer favoriteStore.Close()

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		appvalidator.NewValidator(),
		NewSessionManager(redisClient, cfg.Session.IdleTimeout),
		catalogClient,
		gate,
		catalog.NewRedisPageCache(redisClient, cfg.Catalog.CacheTTL),
		favoriteStore,
	)

	ctx, cancel := context.WithCancel(context.Background())

	var workers conc.WaitGroup
	defer workers.Wait()
	defer cancel()

	workers.Go(func() {
		gate.Run(ctx)
	})
	workers.Go(func() {
		err := favoriteStore.Watch(ctx)
		if err != nil {
			logger.Error("favorites watcher stopped", "error", err)
		}
	})
	workers.Go(func() {
		app.feeds.Run(ctx)
	})

	return app.run()
}

func NewSessionManager(client *redis.Client, idleTimeout time.Duration) *scs.SessionManager {
	sessionManager := scs.New()

	if idleTimeout <= 0 {
		idleTimeout = 20 * time.Minute
	}

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = idleTimeout
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		app.feeds.Close()

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

// connectivityTarget returns the configured probe address, or the catalog
// host with the port implied by its scheme.
func connectivityTarget(cfg Config) (string, error) {
	if cfg.Connectivity.Target != "" {
		return cfg.Connectivity.Target, nil
	}

	u, err := url.Parse(cfg.Catalog.URL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid catalog url %q", cfg.Catalog.URL)
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}

	return net.JoinHostPort(u.Hostname(), port), nil
}

func sessionIdleTimeout(cfg Config) time.Duration {
	if cfg.Session.IdleTimeout <= 0 {
		return 20 * time.Minute
	}

	return cfg.Session.IdleTimeout
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}
