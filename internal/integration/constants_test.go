package integration_test

import "github.com/metinatakli/cinefeed/internal/domain"

const (
	// Catalog related constants
	TestCatalogAPIKey     = "test-api-key"
	TestCatalogTotalPages = 2

	// Favorite related constants
	TestFavoriteTitle      = "Test Movie"
	TestFavoriteOverview   = "A test movie overview."
	TestFavoritePosterPath = "/poster.jpg"
)

var (
	TestGenres = []domain.Genre{
		{ID: 28, Name: "Action"},
		{ID: 18, Name: "Drama"},
	}

	// TestCatalogPages are served by the fake catalog, keyed by page number.
	TestCatalogPages = map[int][]domain.Movie{
		1: {
			{ID: 101, Title: "First", GenreIDs: []int{28}},
			{ID: 102, Title: "Second", GenreIDs: []int{18}},
		},
		2: {
			{ID: 102, Title: "Second", GenreIDs: []int{18}},
			{ID: 103, Title: "Third", GenreIDs: []int{28, 18}},
		},
	}
)
