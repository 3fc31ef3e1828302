package integration_test

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinefeed/internal/app"
	"github.com/metinatakli/cinefeed/internal/catalog"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/favorites"
	"github.com/metinatakli/cinefeed/internal/mocks"
	"github.com/metinatakli/cinefeed/internal/repository"
	appvalidator "github.com/metinatakli/cinefeed/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App          *app.Application
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Gate         *mocks.StubGate
	FavoriteRepo *repository.PostgresFavoriteRepository
	Favorites    *favorites.Store
	PageCache    *catalog.RedisPageCache
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient, cfg.Session.IdleTimeout)

	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL:  cfg.Catalog.URL,
		APIKey:   cfg.Catalog.APIKey,
		Timeout:  cfg.Catalog.Timeout,
		Attempts: cfg.Catalog.Attempts,
	}, http.DefaultClient, logger)

	pageCache := catalog.NewRedisPageCache(redisClient, cfg.Catalog.CacheTTL)
	gate := mocks.NewStubGate(domain.Online)

	favoriteRepo := repository.NewPostgresFavoriteRepository(db)
	favoriteStore := favorites.NewStore(favoriteRepo, logger)

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		sessionManager,
		catalogClient,
		gate,
		pageCache,
		favoriteStore,
	)

	return &TestApp{
		App:          application,
		DB:           db,
		Redis:        redisClient,
		Gate:         gate,
		FavoriteRepo: favoriteRepo,
		Favorites:    favoriteStore,
		PageCache:    pageCache,
	}, nil
}
