package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return string(data)
}

func TestSavePage(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockRedisClient)
	pipe := new(mocks.MockTxPipeline)
	cache := NewRedisPageCache(client, time.Hour)

	page := &domain.MoviePage{Page: 2, TotalPages: 5, Results: []domain.Movie{{ID: 1, Page: 2}}}

	client.On("TxPipeline").Return(pipe)
	pipe.On("Set", ctx, "catalog:page:2", mock.Anything, time.Hour).Return(redis.NewStatusResult("OK", nil))
	pipe.On("SAdd", ctx, pagesKey, []interface{}{2}).Return(redis.NewIntResult(1, nil))
	pipe.On("Expire", ctx, pagesKey, time.Hour).Return(redis.NewBoolResult(true, nil))
	pipe.On("Exec", ctx).Return([]redis.Cmder{}, nil)

	err := cache.SavePage(ctx, page)
	require.NoError(t, err)

	client.AssertExpectations(t)
	pipe.AssertExpectations(t)
}

func TestSavePageExecFailure(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockRedisClient)
	pipe := new(mocks.MockTxPipeline)
	cache := NewRedisPageCache(client, time.Hour)

	client.On("TxPipeline").Return(pipe)
	pipe.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(redis.NewStatusResult("OK", nil))
	pipe.On("SAdd", mock.Anything, mock.Anything, mock.Anything).Return(redis.NewIntResult(1, nil))
	pipe.On("Expire", mock.Anything, mock.Anything, mock.Anything).Return(redis.NewBoolResult(true, nil))
	pipe.On("Exec", ctx).Return(nil, mocks.MockRedisError{Msg: "READONLY"})

	err := cache.SavePage(ctx, &domain.MoviePage{Page: 1})
	assert.ErrorContains(t, err, "READONLY")
}

func TestLoadPagesInPageOrder(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockRedisClient)
	cache := NewRedisPageCache(client, time.Hour)

	page1 := &domain.MoviePage{Page: 1, TotalPages: 9, Results: []domain.Movie{{ID: 10, GenreIDs: []int{}, Page: 1}}}
	page3 := &domain.MoviePage{Page: 3, TotalPages: 9, Results: []domain.Movie{{ID: 30, GenreIDs: []int{}, Page: 3}}}

	client.On("SMembers", ctx, pagesKey).Return(redis.NewStringSliceResult([]string{"3", "2", "1", "junk"}, nil))
	client.On("MGet", ctx, []string{"catalog:page:1", "catalog:page:2", "catalog:page:3"}).
		Return(redis.NewSliceResult([]interface{}{marshal(t, page1), nil, marshal(t, page3)}, nil))

	got, err := cache.LoadPages(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff([]*domain.MoviePage{page1, page3}, got); diff != "" {
		t.Errorf("LoadPages() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPagesEmpty(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockRedisClient)
	cache := NewRedisPageCache(client, time.Hour)

	client.On("SMembers", ctx, pagesKey).Return(redis.NewStringSliceResult([]string{}, nil))

	got, err := cache.LoadPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	client.AssertNotCalled(t, "MGet", mock.Anything, mock.Anything)
}

func TestGenresRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockRedisClient)
	cache := NewRedisPageCache(client, 0)

	genres := []domain.Genre{{ID: 28, Name: "Action"}}

	client.On("Set", ctx, genresKey, []byte(marshal(t, genres)), DefaultCacheTTL).Return(redis.NewStatusResult("OK", nil))
	client.On("Get", ctx, genresKey).Return(redis.NewStringResult(marshal(t, genres), nil))

	require.NoError(t, cache.SaveGenres(ctx, genres))

	got, err := cache.LoadGenres(ctx)
	require.NoError(t, err)
	assert.Equal(t, genres, got)
}

func TestLoadGenresMissing(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.MockRedisClient)
	cache := NewRedisPageCache(client, time.Hour)

	client.On("Get", ctx, genresKey).Return(redis.NewStringResult("", redis.Nil))

	got, err := cache.LoadGenres(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
