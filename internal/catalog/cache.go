package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 6 * time.Hour

const (
	pagesKey  = "catalog:pages"
	genresKey = "catalog:genres"
)

func pageKey(page int) string {
	return fmt.Sprintf("catalog:page:%d", page)
}

// RedisPageCache keeps the last fetched catalog pages and genre taxonomy so a
// feed can be seeded while the catalog is unreachable.
type RedisPageCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisPageCache(client redis.UniversalClient, ttl time.Duration) *RedisPageCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &RedisPageCache{client: client, ttl: ttl}
}

func (c *RedisPageCache) SavePage(ctx context.Context, page *domain.MoviePage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page %d: %w", page.Page, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, pageKey(page.Page), data, c.ttl)
	pipe.SAdd(ctx, pagesKey, page.Page)
	pipe.Expire(ctx, pagesKey, c.ttl)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache page %d: %w", page.Page, err)
	}

	return nil
}

// LoadPages returns every cached page that has not expired, in page order.
func (c *RedisPageCache) LoadPages(ctx context.Context) ([]*domain.MoviePage, error) {
	members, err := c.client.SMembers(ctx, pagesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list cached pages: %w", err)
	}

	numbers := make([]int, 0, len(members))
	for _, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		return nil, nil
	}

	slices.Sort(numbers)

	keys := make([]string, len(numbers))
	for i, n := range numbers {
		keys[i] = pageKey(n)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load cached pages: %w", err)
	}

	pages := make([]*domain.MoviePage, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired since the set was written
			continue
		}

		var page domain.MoviePage
		err := json.Unmarshal([]byte(raw), &page)
		if err != nil {
			return nil, fmt.Errorf("decode cached page %d: %w", numbers[i], err)
		}

		pages = append(pages, &page)
	}

	return pages, nil
}

func (c *RedisPageCache) SaveGenres(ctx context.Context, genres []domain.Genre) error {
	data, err := json.Marshal(genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	err = c.client.Set(ctx, genresKey, data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("cache genres: %w", err)
	}

	return nil
}

func (c *RedisPageCache) LoadGenres(ctx context.Context) ([]domain.Genre, error) {
	data, err := c.client.Get(ctx, genresKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("load cached genres: %w", err)
	}

	var genres []domain.Genre
	err = json.Unmarshal(data, &genres)
	if err != nil {
		return nil, fmt.Errorf("decode cached genres: %w", err)
	}

	return genres, nil
}
