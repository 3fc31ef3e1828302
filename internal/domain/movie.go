package domain

import "context"

type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"originalTitle"`
	OriginalLanguage string  `json:"originalLanguage"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"posterPath"`
	BackdropPath     string  `json:"backdropPath"`
	VoteAverage      float64 `json:"voteAverage"`
	VoteCount        int     `json:"voteCount"`
	ReleaseDate      string  `json:"releaseDate"`
	GenreIDs         []int   `json:"genreIds"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`

	// Page records which fetch page produced the movie. It is not part of its identity.
	Page int `json:"page"`
}

// HasGenre reports whether the movie is tagged with the given genre id.
func (m Movie) HasGenre(genreID int) bool {
	for _, id := range m.GenreIDs {
		if id == genreID {
			return true
		}
	}

	return false
}

type MovieDetail struct {
	Movie
	Runtime  int     `json:"runtime"`
	Tagline  string  `json:"tagline"`
	Status   string  `json:"status"`
	Homepage string  `json:"homepage"`
	IMDBID   string  `json:"imdbId"`
	Genres   []Genre `json:"genres"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AllGenre is the synthetic "no filter" entry shown first in every genre list.
var AllGenre = Genre{ID: 0, Name: "All"}

type MoviePage struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"totalPages"`
	TotalResults int     `json:"totalResults"`
	Results      []Movie `json:"results"`
}

type CatalogClient interface {
	FetchPage(ctx context.Context, page int) (*MoviePage, error)
	FetchGenres(ctx context.Context) ([]Genre, error)
	Search(ctx context.Context, query string, page int) (*MoviePage, error)
	FetchDetails(ctx context.Context, movieID int) (*MovieDetail, error)
}

// PageCache is the read-through cache of previously fetched catalog pages.
type PageCache interface {
	SavePage(ctx context.Context, page *MoviePage) error
	LoadPages(ctx context.Context) ([]*MoviePage, error)
	SaveGenres(ctx context.Context, genres []Genre) error
	LoadGenres(ctx context.Context) ([]Genre, error)
}
