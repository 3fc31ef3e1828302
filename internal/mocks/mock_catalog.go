package mocks

import (
	"context"

	"github.com/metinatakli/cinefeed/internal/domain"
)

type MockCatalogClient struct {
	domain.CatalogClient
	FetchPageFunc    func(ctx context.Context, page int) (*domain.MoviePage, error)
	FetchGenresFunc  func(ctx context.Context) ([]domain.Genre, error)
	SearchFunc       func(ctx context.Context, query string, page int) (*domain.MoviePage, error)
	FetchDetailsFunc func(ctx context.Context, movieID int) (*domain.MovieDetail, error)
}

func (m *MockCatalogClient) FetchPage(ctx context.Context, page int) (*domain.MoviePage, error) {
	return m.FetchPageFunc(ctx, page)
}

func (m *MockCatalogClient) FetchGenres(ctx context.Context) ([]domain.Genre, error) {
	return m.FetchGenresFunc(ctx)
}

func (m *MockCatalogClient) Search(ctx context.Context, query string, page int) (*domain.MoviePage, error) {
	return m.SearchFunc(ctx, query, page)
}

func (m *MockCatalogClient) FetchDetails(ctx context.Context, movieID int) (*domain.MovieDetail, error) {
	return m.FetchDetailsFunc(ctx, movieID)
}
