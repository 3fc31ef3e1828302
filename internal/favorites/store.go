package favorites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/observable"
)

const (
	defaultRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Store is the ordered favorites projection over a FavoriteRepository.
// Toggles go to the repository first and are then applied to the projection.
// Reorders only touch the projection until CommitOrder writes them back.
type Store struct {
	repo   domain.FavoriteRepository
	logger *slog.Logger
	locks  *keyLock

	retryDelay time.Duration

	// mu serializes every change to the projection.
	mu    sync.Mutex
	state *observable.Subject[domain.FavoritesState]
}

func NewStore(repo domain.FavoriteRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		repo:       repo,
		logger:     logger,
		locks:      newKeyLock(),
		retryDelay: defaultRetryDelay,
		state:      observable.New(domain.FavoritesState{Favorites: []domain.FavoriteEntry{}}),
	}
}

// State returns the latest snapshot.
func (s *Store) State() domain.FavoritesState {
	return s.state.Value()
}

// Observe streams every FavoritesState snapshot until ctx is done.
func (s *Store) Observe(ctx context.Context) <-chan domain.FavoritesState {
	return s.state.Subscribe(ctx)
}

func (s *Store) Close() {
	s.state.Close()
}

// Load replaces the projection with the durable list. Any uncommitted order
// is discarded.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}

	if entries == nil {
		entries = []domain.FavoriteEntry{}
	}

	s.state.Publish(domain.FavoritesState{Favorites: entries})
	return nil
}

// Watch loads the favorites and reloads them whenever the repository reports
// a change. A dropped change feed is reopened with backoff, followed by a
// reload to pick up what was missed. It returns when ctx is done. Reloads are
// skipped while a reorder is waiting to be committed.
func (s *Store) Watch(ctx context.Context) error {
	err := s.Load(ctx)
	if err != nil {
		return err
	}

	notifier, ok := s.repo.(domain.FavoriteNotifier)
	if !ok {
		s.logger.Debug("favorites repository has no change feed")
		<-ctx.Done()
		return nil
	}

	for resubscribe := false; ctx.Err() == nil; resubscribe = true {
		changes, err := s.subscribe(ctx, notifier)
		if err != nil {
			break
		}

		if resubscribe {
			s.logger.Info("favorites change feed reopened")
			s.reload(ctx)
		}

		for range changes {
			s.reload(ctx)
		}

		if ctx.Err() == nil {
			s.logger.Warn("favorites change feed closed")
		}
	}

	return nil
}

// subscribe opens the change feed, retrying until it succeeds or ctx is done.
func (s *Store) subscribe(ctx context.Context, notifier domain.FavoriteNotifier) (<-chan struct{}, error) {
	var changes <-chan struct{}

	err := retry.Do(
		func() error {
			ch, err := notifier.Changes(ctx)
			if err != nil {
				return err
			}

			changes = ch
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(s.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("failed to subscribe to favorite changes", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe to favorite changes: %w", err)
	}

	return changes, nil
}

func (s *Store) reload(ctx context.Context) {
	err := s.refresh(ctx)
	if err != nil {
		s.logger.Error("failed to reload favorites", "error", err)
	}
}

func (s *Store) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Value().Unsaved {
		s.logger.Debug("skipping favorites reload, order not committed")
		return nil
	}

	return s.loadLocked(ctx)
}

// Toggle removes the movie when currentlyFavorite is set and adds it to the
// end of the list otherwise. Calls for the same movie run one at a time, and
// repeating a call that already took effect changes nothing.
func (s *Store) Toggle(ctx context.Context, movie domain.Movie, currentlyFavorite bool) error {
	unlock := s.locks.Lock(movie.ID)
	defer unlock()

	return s.toggleLocked(ctx, movie, currentlyFavorite)
}

// ToggleFavorite flips the durable membership of the movie.
func (s *Store) ToggleFavorite(ctx context.Context, movie domain.Movie) (bool, error) {
	unlock := s.locks.Lock(movie.ID)
	defer unlock()

	exists, err := s.repo.Exists(ctx, movie.ID)
	if err != nil {
		return false, fmt.Errorf("check favorite %d: %w", movie.ID, err)
	}

	err = s.toggleLocked(ctx, movie, exists)
	if err != nil {
		return exists, err
	}

	return !exists, nil
}

func (s *Store) toggleLocked(ctx context.Context, movie domain.Movie, currentlyFavorite bool) error {
	logger := s.logger.With("movie_id", movie.ID)

	if currentlyFavorite {
		err := s.repo.Delete(ctx, movie.ID)
		if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
			logger.Error("failed to delete favorite", "error", err)
			return fmt.Errorf("delete favorite %d: %w", movie.ID, err)
		}

		s.apply(func(list []domain.FavoriteEntry) []domain.FavoriteEntry {
			return slices.DeleteFunc(list, func(e domain.FavoriteEntry) bool {
				return e.MovieID == movie.ID
			})
		})

		logger.Info("favorite removed")
		return nil
	}

	entry := domain.NewFavoriteEntry(movie)

	err := s.repo.Add(ctx, &entry)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyFavorite) {
			logger.Debug("movie already a favorite")
			return s.ensureListed(ctx, movie.ID)
		}

		logger.Error("failed to add favorite", "error", err)
		return fmt.Errorf("add favorite %d: %w", movie.ID, err)
	}

	s.apply(func(list []domain.FavoriteEntry) []domain.FavoriteEntry {
		if slices.ContainsFunc(list, func(e domain.FavoriteEntry) bool { return e.MovieID == entry.MovieID }) {
			return list
		}
		return append(list, entry)
	})

	logger.Info("favorite added", "position", entry.Position)
	return nil
}

// ensureListed adds a stored favorite that the projection does not show yet,
// which happens when another writer added it while reloads were skipped.
func (s *Store) ensureListed(ctx context.Context, movieID int) error {
	if s.Contains(movieID) {
		return nil
	}

	entries, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("read favorite %d: %w", movieID, err)
	}

	idx := slices.IndexFunc(entries, func(e domain.FavoriteEntry) bool { return e.MovieID == movieID })
	if idx < 0 {
		return nil
	}

	stored := entries[idx]
	s.apply(func(list []domain.FavoriteEntry) []domain.FavoriteEntry {
		if containsMovie(list, movieID) {
			return list
		}
		return append(list, stored)
	})

	return nil
}

// apply edits a copy of the current list and publishes it. The Unsaved flag
// is carried over.
func (s *Store) apply(edit func([]domain.FavoriteEntry) []domain.FavoriteEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Update(func(st domain.FavoritesState) domain.FavoritesState {
		st.Favorites = edit(slices.Clone(st.Favorites))
		return st
	})
}

// Reorder exchanges the entries at from and to along with their positions.
// Nothing else in the list moves, so applying the same call with the indices
// swapped restores the previous order. The change stays in memory until
// CommitOrder.
func (s *Store) Reorder(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.Value().Favorites
	if from < 0 || from >= len(current) || to < 0 || to >= len(current) {
		return fmt.Errorf("reorder %d -> %d of %d favorites: %w", from, to, len(current), domain.ErrInvalidPosition)
	}

	if from == to {
		return nil
	}

	s.state.Update(func(st domain.FavoritesState) domain.FavoritesState {
		list := slices.Clone(st.Favorites)

		a, b := list[from], list[to]
		a.Position, b.Position = b.Position, a.Position
		list[from], list[to] = b, a

		st.Favorites = list
		st.Unsaved = true
		return st
	})

	return nil
}

// CommitOrder writes the positions of the whole in-memory list in one batch.
// On failure the projection stays marked Unsaved until the next Load.
func (s *Store) CommitOrder(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.Value()
	if !current.Unsaved {
		return nil
	}

	err := s.repo.UpdatePositions(ctx, current.Favorites)
	if err != nil {
		s.logger.Error("failed to commit favorites order", "count", len(current.Favorites), "error", err)
		return fmt.Errorf("commit favorites order: %w", err)
	}

	s.state.Update(func(st domain.FavoritesState) domain.FavoritesState {
		st.Unsaved = false
		return st
	})

	s.logger.Info("favorites order committed", "count", len(current.Favorites))
	return nil
}

// List streams the ordered favorites until ctx is done.
func (s *Store) List(ctx context.Context) <-chan []domain.FavoriteEntry {
	return derive(ctx, s.state.Subscribe(ctx), func(st domain.FavoritesState) []domain.FavoriteEntry {
		return st.Favorites
	}, nil)
}

// IsFavorite streams the membership of one movie. Only changes are emitted.
func (s *Store) IsFavorite(ctx context.Context, movieID int) <-chan bool {
	return derive(ctx, s.state.Subscribe(ctx), func(st domain.FavoritesState) bool {
		return containsMovie(st.Favorites, movieID)
	}, func(a, b bool) bool { return a == b })
}

// Contains reports whether the movie is in the current projection.
func (s *Store) Contains(movieID int) bool {
	return containsMovie(s.state.Value().Favorites, movieID)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}

	return n, nil
}

func containsMovie(list []domain.FavoriteEntry, movieID int) bool {
	return slices.ContainsFunc(list, func(e domain.FavoriteEntry) bool {
		return e.MovieID == movieID
	})
}

// derive maps a snapshot stream. When equal is set, values equal to the last
// one sent are dropped.
func derive[T, U any](ctx context.Context, in <-chan T, fn func(T) U, equal func(a, b U) bool) <-chan U {
	out := make(chan U)

	go func() {
		defer close(out)

		var (
			last U
			sent bool
		)

		for v := range in {
			next := fn(v)
			if equal != nil && sent && equal(last, next) {
				continue
			}

			select {
			case out <- next:
				last, sent = next, true
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
