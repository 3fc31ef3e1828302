package integration_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	migrationsSource = "file://../../migrations"
	redisPort        = nat.Port("6379/tcp")
	startupTimeout   = 60 * time.Second
)

type PostgresContainer struct {
	Container        *postgres.PostgresContainer
	ConnectionString string
	SchemaVersion    uint
}

type RedisContainer struct {
	Container *tcredis.RedisContainer
	// Addr is host:port, the form redis.Options expects.
	Addr string
}

// getDbContainer starts Postgres and applies every migration, including the
// trigger behind the favorites change feed.
func getDbContainer(ctx context.Context) (*PostgresContainer, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	container, err := postgres.Run(ctx, dbImageName,
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.BasicWaitStrategies(),
		testcontainers.WithEnv(map[string]string{"POSTGRES_INITDB_ARGS": "--data-checksums"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start DB container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, terminateOnError(container, fmt.Errorf("failed to get connection string: %w", err))
	}

	version, err := migrateUp(dsn)
	if err != nil {
		return nil, terminateOnError(container, err)
	}

	return &PostgresContainer{
		Container:        container,
		ConnectionString: dsn,
		SchemaVersion:    version,
	}, nil
}

// migrateUp applies the migrations through golang-migrate's pgx driver and
// returns the resulting schema version.
func migrateUp(dsn string) (uint, error) {
	m, err := migrate.New(migrationsSource, "pgx"+strings.TrimPrefix(dsn, "postgres"))
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema version %d is dirty", version)
	}

	return version, nil
}

func getCacheContainer(ctx context.Context) (*RedisContainer, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	container, err := tcredis.Run(ctx, cacheImageName)
	if err != nil {
		return nil, fmt.Errorf("failed to start cache container: %w", err)
	}

	addr, err := container.PortEndpoint(ctx, redisPort, "")
	if err != nil {
		return nil, terminateOnError(container, fmt.Errorf("failed to get cache address: %w", err))
	}

	return &RedisContainer{Container: container, Addr: addr}, nil
}

func terminateOnError(container testcontainers.Container, err error) error {
	if termErr := testcontainers.TerminateContainer(container); termErr != nil {
		return errors.Join(err, termErr)
	}
	return err
}
