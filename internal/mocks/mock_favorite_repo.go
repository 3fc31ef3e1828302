package mocks

import (
	"context"

	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockFavoriteRepo struct {
	mock.Mock
}

func (m *MockFavoriteRepo) Add(ctx context.Context, entry *domain.FavoriteEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockFavoriteRepo) Delete(ctx context.Context, movieID int) error {
	args := m.Called(ctx, movieID)
	return args.Error(0)
}

func (m *MockFavoriteRepo) List(ctx context.Context) ([]domain.FavoriteEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FavoriteEntry), args.Error(1)
}

func (m *MockFavoriteRepo) Exists(ctx context.Context, movieID int) (bool, error) {
	args := m.Called(ctx, movieID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoriteRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockFavoriteRepo) UpdatePositions(ctx context.Context, entries []domain.FavoriteEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// MockNotifyingFavoriteRepo adds a change feed driven by the test. Each
// Changes call returns the channel set up with On("Changes", ...).
type MockNotifyingFavoriteRepo struct {
	MockFavoriteRepo
}

func (m *MockNotifyingFavoriteRepo) Changes(ctx context.Context) (<-chan struct{}, error) {
	args := m.Called(ctx)

	switch ch := args.Get(0).(type) {
	case chan struct{}:
		return ch, args.Error(1)
	case <-chan struct{}:
		return ch, args.Error(1)
	}

	return nil, args.Error(1)
}
