package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/observable"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/metinatakli/cinefeed/internal/feed"

const (
	outcomeSuccess      = "success"
	outcomeStale        = "stale"
	outcomeEmpty        = "empty"
	outcomeNoConnection = "no_connection"
	outcomeUnknown      = "unknown"
)

// Catalog is the part of the catalog client the feed needs.
type Catalog interface {
	FetchPage(ctx context.Context, page int) (*domain.MoviePage, error)
	FetchGenres(ctx context.Context) ([]domain.Genre, error)
}

type Option func(*Controller)

func WithPageCache(cache domain.PageCache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(c *Controller) {
		c.meter = meter
	}
}

// Controller owns the feed of one browsing session. It paginates the catalog,
// merges pages into the accumulated list and publishes every change as a
// FeedState snapshot.
type Controller struct {
	id       string
	catalog  Catalog
	gate     domain.ConnectivityGate
	cache    domain.PageCache
	logger   *slog.Logger
	meter    metric.Meter
	outcomes metric.Int64Counter

	state *observable.Subject[domain.FeedState]

	mu      sync.Mutex
	loading bool

	scope     context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewController(catalog Catalog, gate domain.ConnectivityGate, opts ...Option) *Controller {
	c := &Controller{
		id:      uuid.New().String(),
		catalog: catalog,
		gate:    gate,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		meter:   otel.Meter(meterName),
		state:   observable.New(emptyState()),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("feed_id", c.id)

	outcomes, err := c.meter.Int64Counter(
		"feed.fetch.outcomes",
		metric.WithDescription("Number of settled feed fetches by outcome"),
	)
	if err != nil {
		c.logger.Warn("failed to create fetch outcome counter", "error", err)
		outcomes, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("feed.fetch.outcomes")
	}
	c.outcomes = outcomes

	c.scope, c.cancel = context.WithCancel(context.Background())
	go c.watchConnectivity()

	return c
}

func emptyState() domain.FeedState {
	return domain.FeedState{
		Movies:          []domain.Movie{},
		FilteredMovies:  []domain.Movie{},
		Genres:          []domain.Genre{},
		SelectedGenreID: domain.AllGenre.ID,
	}
}

func (c *Controller) ID() string {
	return c.id
}

// State returns the latest snapshot.
func (c *Controller) State() domain.FeedState {
	return c.state.Value()
}

// Observe streams snapshots until ctx is done or the controller is closed.
func (c *Controller) Observe(ctx context.Context) <-chan domain.FeedState {
	return c.state.Subscribe(ctx)
}

// Close ends the connectivity subscription, cancels any fetch in flight and
// closes every observer.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		c.state.Close()
	})
}

func (c *Controller) watchConnectivity() {
	defer close(c.done)

	for status := range c.gate.Observe(c.scope) {
		online := status == domain.Online

		c.state.Update(func(s domain.FeedState) domain.FeedState {
			s.Online = online
			return s
		})
	}
}

// FetchMovies requests the page after the current one. A call made while a
// fetch is already running returns immediately without doing anything.
func (c *Controller) FetchMovies(ctx context.Context) {
	if !c.beginLoading() {
		c.logger.Debug("fetch already in progress, ignoring")
		return
	}
	defer c.endLoading()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(c.scope, cancel)
	defer stop()

	current := c.state.Update(func(s domain.FeedState) domain.FeedState {
		s.IsLoading = true
		s.IsSuccess = false
		s.IsError = false
		s.ErrorKind = domain.ErrorKindNone
		s.ErrorMessage = ""
		return s
	})

	if c.gate.Status() != domain.Online {
		c.serveOffline(ctx, current)
		return
	}

	next := current.CurrentPage + 1

	page, genres, err := c.fetch(ctx, next)
	if err != nil {
		kind := classify(err)
		c.logger.Warn("feed fetch failed", "page", next, "kind", kind, "error", err)
		c.settle(ctx, nil, kind)
		return
	}

	c.serveFetched(ctx, page, genres)
}

// OnGenreTypeSelected narrows the feed to a genre. Selecting the "All" genre
// clears the filter.
func (c *Controller) OnGenreTypeSelected(genreID int) {
	c.state.Update(func(s domain.FeedState) domain.FeedState {
		s.SelectedGenreID = genreID
		s.FilteredMovies = FilterByGenre(s.Movies, genreID)
		return s
	})
}

func (c *Controller) beginLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading {
		return false
	}

	c.loading = true
	return true
}

func (c *Controller) endLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false
}

// fetch requests a page and the genre taxonomy together. Both must succeed;
// the first failure cancels the other request.
func (c *Controller) fetch(ctx context.Context, pageNumber int) (*domain.MoviePage, []domain.Genre, error) {
	var (
		page   *domain.MoviePage
		genres []domain.Genre
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		var err error

		page, err = c.catalog.FetchPage(ctx, pageNumber)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", pageNumber, err)
		}

		return nil
	})

	p.Go(func(ctx context.Context) error {
		var err error

		genres, err = c.catalog.FetchGenres(ctx)
		if err != nil {
			return fmt.Errorf("fetch genres: %w", err)
		}

		return nil
	})

	err := p.Wait()
	if err != nil {
		return nil, nil, err
	}

	if page == nil {
		return nil, nil, fmt.Errorf("fetch page %d: catalog returned no page", pageNumber)
	}

	return page, genres, nil
}

func (c *Controller) serveFetched(ctx context.Context, page *domain.MoviePage, genres []domain.Genre) {
	incoming := tagPage(page)

	failure := domain.ErrorKindNone
	if len(incoming) == 0 {
		failure = domain.ErrorKindEmptyResult
	}

	c.settle(ctx, func(s *domain.FeedState) {
		s.Genres = BuildGenres(genres)

		if len(incoming) == 0 {
			s.EndReached = true
			return
		}

		s.Movies = Merge(s.Movies, incoming)
		s.CurrentPage = page.Page
		s.TotalPages = page.TotalPages
		s.EndReached = page.TotalPages > 0 && page.Page >= page.TotalPages
	}, failure)

	if c.cache == nil || len(incoming) == 0 {
		return
	}

	err := c.cache.SavePage(ctx, page)
	if err != nil {
		c.logger.Warn("failed to cache catalog page", "page", page.Page, "error", err)
	}

	err = c.cache.SaveGenres(ctx, genres)
	if err != nil {
		c.logger.Warn("failed to cache genres", "error", err)
	}
}

// serveOffline keeps whatever the feed already holds. An empty feed is seeded
// from the page cache before giving up.
func (c *Controller) serveOffline(ctx context.Context, current domain.FeedState) {
	var (
		pages  []*domain.MoviePage
		genres []domain.Genre
	)

	if len(current.Movies) == 0 && c.cache != nil {
		var err error

		pages, err = c.cache.LoadPages(ctx)
		if err != nil {
			c.logger.Warn("failed to load cached pages", "error", err)
		}

		genres, err = c.cache.LoadGenres(ctx)
		if err != nil {
			c.logger.Warn("failed to load cached genres", "error", err)
		}
	}

	c.settle(ctx, func(s *domain.FeedState) {
		if len(s.Movies) > 0 {
			return
		}

		for _, page := range pages {
			s.Movies = Merge(s.Movies, tagPage(page))
			s.CurrentPage = max(s.CurrentPage, page.Page)
			s.TotalPages = max(s.TotalPages, page.TotalPages)
		}

		if len(pages) > 0 {
			s.Genres = BuildGenres(genres)
		}
	}, domain.ErrorKindNoConnection)
}

// settle ends a fetch. update runs against the latest snapshot. A failure is
// only shown when the feed has nothing to fall back on; otherwise the feed
// stays in Success over the movies it already holds.
func (c *Controller) settle(ctx context.Context, update func(s *domain.FeedState), failure domain.ErrorKind) {
	outcome := outcomeSuccess

	state := c.state.Update(func(s domain.FeedState) domain.FeedState {
		if update != nil {
			update(&s)
		}

		s.IsLoading = false

		if failure != domain.ErrorKindNone && len(s.Movies) == 0 {
			s.IsSuccess = false
			s.IsError = true
			s.ErrorKind = failure
			s.ErrorMessage = failure.Message()
			outcome = failureOutcome(failure)
			return s
		}

		if failure != domain.ErrorKindNone {
			outcome = outcomeStale
		}

		s.IsSuccess = true
		s.IsError = false
		s.ErrorKind = domain.ErrorKindNone
		s.ErrorMessage = ""
		s.FilteredMovies = FilterByGenre(s.Movies, s.SelectedGenreID)
		return s
	})

	c.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	c.logger.Info("feed fetch settled",
		"outcome", outcome,
		"page", state.CurrentPage,
		"movies", len(state.Movies),
	)
}

func failureOutcome(kind domain.ErrorKind) string {
	switch kind {
	case domain.ErrorKindNoConnection:
		return outcomeNoConnection
	case domain.ErrorKindEmptyResult:
		return outcomeEmpty
	default:
		return outcomeUnknown
	}
}

// classify maps a fetch error to the kind shown to the user.
func classify(err error) domain.ErrorKind {
	if errors.Is(err, domain.ErrConnection) {
		return domain.ErrorKindNoConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ErrorKindNoConnection
	}

	return domain.ErrorKindUnknown
}

// tagPage copies the page results and records the page number on movies that
// do not carry one.
func tagPage(page *domain.MoviePage) []domain.Movie {
	movies := make([]domain.Movie, len(page.Results))
	copy(movies, page.Results)

	for i := range movies {
		if movies[i].Page == 0 {
			movies[i].Page = page.Page
		}
	}

	return movies
}
