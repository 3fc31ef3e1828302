package mocks

import (
	"context"

	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPageCache struct {
	mock.Mock
}

func (m *MockPageCache) SavePage(ctx context.Context, page *domain.MoviePage) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *MockPageCache) LoadPages(ctx context.Context) ([]*domain.MoviePage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MoviePage), args.Error(1)
}

func (m *MockPageCache) SaveGenres(ctx context.Context, genres []domain.Genre) error {
	args := m.Called(ctx, genres)
	return args.Error(0)
}

func (m *MockPageCache) LoadGenres(ctx context.Context) ([]domain.Genre, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Genre), args.Error(1)
}
