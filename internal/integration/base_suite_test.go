package integration_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metinatakli/cinefeed/internal/app"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "cinefeed"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	catalog        *FakeCatalog
	server         *httptest.Server
	stopWatch      context.CancelFunc
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	log.Printf("postgres ready at schema version %d", postgresContainer.SchemaVersion)

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer
	s.catalog = newFakeCatalog()

	cfg := app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.Addr,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Catalog: app.CatalogConfig{
			URL:      s.catalog.URL(),
			APIKey:   TestCatalogAPIKey,
			Timeout:  2 * time.Second,
			Attempts: 1,
			CacheTTL: time.Hour,
		},
		Session: app.SessionConfig{
			IdleTimeout: 5 * time.Minute,
		},
	}

	testApp, err := newTestApp(cfg)
	if err != nil {
		log.Printf("cannot initialize app: %s", err)
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.stopWatch = cancel

	go func() {
		if err := testApp.Favorites.Watch(watchCtx); err != nil {
			log.Printf("favorites watch stopped: %s", err)
		}
	}()

	s.app = testApp
	s.server = httptest.NewServer(testApp.App.Routes())
}

func (s *BaseSuite) TearDownSuite() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.server != nil {
		s.server.Close()
	}
	if s.catalog != nil {
		s.catalog.Close()
	}
	if s.app != nil {
		s.app.Favorites.Close()
		s.app.Redis.Close()
		s.app.DB.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// resetState empties the favorites table and the cache, and reloads the
// in-memory favorites.
func (s *BaseSuite) resetState() {
	ctx := context.Background()

	_, err := s.app.DB.Exec(ctx, "TRUNCATE favorites")
	s.Require().NoError(err)

	s.Require().NoError(s.app.Redis.FlushDB(ctx).Err())
	s.Require().NoError(s.app.Favorites.Load(ctx))

	s.app.Gate.Set(domain.Online)
	s.catalog.Reset()
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	Cookies          []http.Cookie
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (s Scenario) Run(t *testing.T, testApp *TestApp) {
	t.Run(s.Name, func(t *testing.T) {
		req, err := prepareRequest(s.Method, s.URL, s.Body, s.Headers, s.Cookies)
		require.NoError(t, err)

		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		rec := httptest.NewRecorder()
		testApp.App.Routes().ServeHTTP(rec, req)

		res := rec.Result()
		defer res.Body.Close()

		assert.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}
