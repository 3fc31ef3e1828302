package app

import (
	"time"

	"github.com/metinatakli/cinefeed/internal/domain"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status       string     `json:"status"`
	Connectivity string     `json:"connectivity"`
	SystemInfo   SystemInfo `json:"systemInfo"`
}

type FeedResponse struct {
	Feed domain.FeedState `json:"feed"`
}

type SelectGenreRequest struct {
	GenreId *int `json:"genreId" validate:"required,min=0"`
}

type SearchMoviesParams struct {
	Query string `json:"query" validate:"required,max=100"`
	Page  int    `json:"page" validate:"min=1,max=500"`
}

type MovieListResponse struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Movies       []domain.Movie `json:"movies"`
}

type MovieDetailResponse struct {
	Movie    domain.MovieDetail `json:"movie"`
	Favorite bool               `json:"favorite"`
}

type FavoritesResponse struct {
	Favorites []domain.FavoriteEntry `json:"favorites"`
	Unsaved   bool                   `json:"unsaved"`
}

type FavoriteStatusResponse struct {
	MovieId  int  `json:"movieId"`
	Favorite bool `json:"favorite"`
}

type FavoriteMovie struct {
	Id         int    `json:"id" validate:"min=1"`
	Title      string `json:"title" validate:"required,max=500"`
	Overview   string `json:"overview"`
	PosterPath string `json:"posterPath"`
	GenreIds   []int  `json:"genreIds"`
}

type ToggleFavoriteRequest struct {
	Movie             FavoriteMovie `json:"movie"`
	CurrentlyFavorite *bool         `json:"currentlyFavorite"`
}

type ReorderFavoritesRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}

func toFavoritesResponse(state domain.FavoritesState) FavoritesResponse {
	return FavoritesResponse{
		Favorites: state.Favorites,
		Unsaved:   state.Unsaved,
	}
}

func (m FavoriteMovie) toDomain() domain.Movie {
	genreIDs := m.GenreIds
	if genreIDs == nil {
		genreIDs = []int{}
	}

	return domain.Movie{
		ID:         m.Id,
		Title:      m.Title,
		Overview:   m.Overview,
		PosterPath: m.PosterPath,
		GenreIDs:   genreIDs,
	}
}
