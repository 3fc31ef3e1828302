package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/metinatakli/cinefeed/internal/domain"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "en-US"
	DefaultTimeout  = 15 * time.Second
	DefaultAttempts = 3
)

type Config struct {
	BaseURL    string
	APIKey     string
	Language   string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// StatusError is returned when the catalog answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog request failed: %s", e.Status)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrCatalogStatus
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client talks to a TMDB compatible catalog API.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	attempts   uint
	retryDelay time.Duration
	httpc      *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, httpc *http.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 300 * time.Millisecond
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		language:   cfg.Language,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
		httpc:      httpc,
		logger:     logger,
	}
}

type tmdbMovie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
}

type tmdbPage struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []tmdbMovie `json:"results"`
}

type tmdbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbGenreList struct {
	Genres []tmdbGenre `json:"genres"`
}

type tmdbMovieDetail struct {
	tmdbMovie
	Runtime  int         `json:"runtime"`
	Tagline  string      `json:"tagline"`
	Status   string      `json:"status"`
	Homepage string      `json:"homepage"`
	IMDBID   string      `json:"imdb_id"`
	Genres   []tmdbGenre `json:"genres"`
}

// FetchPage returns one page of the popular movies listing.
func (c *Client) FetchPage(ctx context.Context, page int) (*domain.MoviePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var resp tmdbPage
	err := c.get(ctx, "/movie/popular", params, &resp)
	if err != nil {
		return nil, err
	}

	return toMoviePage(resp), nil
}

func (c *Client) Search(ctx context.Context, query string, page int) (*domain.MoviePage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	var resp tmdbPage
	err := c.get(ctx, "/search/movie", params, &resp)
	if err != nil {
		return nil, err
	}

	return toMoviePage(resp), nil
}

func (c *Client) FetchGenres(ctx context.Context) ([]domain.Genre, error) {
	var resp tmdbGenreList
	err := c.get(ctx, "/genre/movie/list", url.Values{}, &resp)
	if err != nil {
		return nil, err
	}

	return toGenres(resp.Genres), nil
}

func (c *Client) FetchDetails(ctx context.Context, movieID int) (*domain.MovieDetail, error) {
	var resp tmdbMovieDetail
	err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), url.Values{}, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	genres := toGenres(resp.Genres)
	movie := toMovie(resp.tmdbMovie, 0)
	movie.GenreIDs = make([]int, len(genres))
	for i, g := range genres {
		movie.GenreIDs[i] = g.ID
	}

	return &domain.MovieDetail{
		Movie:    movie,
		Runtime:  resp.Runtime,
		Tagline:  resp.Tagline,
		Status:   resp.Status,
		Homepage: resp.Homepage,
		IMDBID:   resp.IMDBID,
		Genres:   genres,
	}, nil
}

// get performs a GET and decodes the JSON body into v. Connection failures,
// 429 and 5xx responses are retried; everything else fails immediately.
func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	endpoint := c.baseURL + path + "?" + params.Encode()

	return retry.Do(
		func() error {
			return c.do(ctx, endpoint, v)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("catalog request failed, retrying", "path", path, "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) do(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(err)
		}

		if isConnectionError(err) {
			return fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}

		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)

		statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		if statusErr.retryable() {
			return statusErr
		}

		return retry.Unrecoverable(statusErr)
	}

	err = json.NewDecoder(resp.Body).Decode(v)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("decode catalog response: %w", err))
	}

	return nil
}

func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func toMoviePage(resp tmdbPage) *domain.MoviePage {
	results := make([]domain.Movie, len(resp.Results))
	for i, m := range resp.Results {
		results[i] = toMovie(m, resp.Page)
	}

	return &domain.MoviePage{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Results:      results,
	}
}

func toMovie(m tmdbMovie, page int) domain.Movie {
	genreIDs := m.GenreIDs
	if genreIDs == nil {
		genreIDs = []int{}
	}

	return domain.Movie{
		ID:               m.ID,
		Title:            m.Title,
		OriginalTitle:    m.OriginalTitle,
		OriginalLanguage: m.OriginalLanguage,
		Overview:         m.Overview,
		PosterPath:       m.PosterPath,
		BackdropPath:     m.BackdropPath,
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		ReleaseDate:      m.ReleaseDate,
		GenreIDs:         genreIDs,
		Popularity:       m.Popularity,
		Adult:            m.Adult,
		Video:            m.Video,
		Page:             page,
	}
}

func toGenres(raw []tmdbGenre) []domain.Genre {
	genres := make([]domain.Genre, len(raw))
	for i, g := range raw {
		genres[i] = domain.Genre{ID: g.ID, Name: g.Name}
	}

	return genres
}
