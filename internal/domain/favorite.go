package domain

import (
	"context"
	"time"
)

type FavoriteEntry struct {
	MovieID    int       `json:"movieId"`
	Title      string    `json:"title"`
	Overview   string    `json:"overview"`
	PosterPath string    `json:"posterPath"`
	GenreIDs   []int     `json:"genreIds"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewFavoriteEntry(movie Movie) FavoriteEntry {
	return FavoriteEntry{
		MovieID:    movie.ID,
		Title:      movie.Title,
		Overview:   movie.Overview,
		PosterPath: movie.PosterPath,
		GenreIDs:   append([]int(nil), movie.GenreIDs...),
	}
}

type FavoritesState struct {
	Favorites []FavoriteEntry `json:"favorites"`
	// Unsaved is set while the in-memory order differs from the committed one.
	Unsaved bool `json:"unsaved"`
}

type FavoriteRepository interface {
	// Add inserts the entry at the end of the list and sets its position.
	Add(ctx context.Context, entry *FavoriteEntry) error
	Delete(ctx context.Context, movieID int) error
	List(ctx context.Context) ([]FavoriteEntry, error)
	Exists(ctx context.Context, movieID int) (bool, error)
	Count(ctx context.Context) (int, error)
	UpdatePositions(ctx context.Context, entries []FavoriteEntry) error
}

// FavoriteNotifier is implemented by repositories that can push change
// notifications from the durable store.
type FavoriteNotifier interface {
	Changes(ctx context.Context) (<-chan struct{}, error)
}
