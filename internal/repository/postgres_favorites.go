package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinefeed/internal/domain"
)

const (
	favoritesChannel = "favorites_changed"

	// favoritesAppendLock serializes inserts so two new favorites never share a position.
	favoritesAppendLock = 7_311_004
)

type PostgresFavoriteRepository struct {
	db *pgxpool.Pool
}

func NewPostgresFavoriteRepository(db *pgxpool.Pool) *PostgresFavoriteRepository {
	return &PostgresFavoriteRepository{
		db: db,
	}
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

// Add appends the entry after the current last favorite and fills in its
// position and creation time.
func (p *PostgresFavoriteRepository) Add(ctx context.Context, entry *domain.FavoriteEntry) error {
	genreIDs := entry.GenreIDs
	if genreIDs == nil {
		genreIDs = []int{}
	}

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, favoritesAppendLock)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO favorites (movie_id, title, overview, poster_path, genre_ids, position)
			VALUES ($1, $2, $3, $4, $5, (SELECT COALESCE(MAX(position), -1) + 1 FROM favorites))
			RETURNING position, created_at
		`

		return tx.QueryRow(
			ctx,
			query,
			entry.MovieID,
			entry.Title,
			entry.Overview,
			entry.PosterPath,
			genreIDs).Scan(&entry.Position, &entry.CreatedAt)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrAlreadyFavorite
		}

		return err
	}

	entry.GenreIDs = genreIDs
	return nil
}

func (p *PostgresFavoriteRepository) Delete(ctx context.Context, movieID int) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM favorites WHERE movie_id = $1`, movieID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresFavoriteRepository) List(ctx context.Context) ([]domain.FavoriteEntry, error) {
	query := `
		SELECT movie_id, title, overview, poster_path, genre_ids, position, created_at
		FROM favorites
		ORDER BY position, created_at
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FavoriteEntry, error) {
		var e domain.FavoriteEntry

		err := row.Scan(
			&e.MovieID,
			&e.Title,
			&e.Overview,
			&e.PosterPath,
			&e.GenreIDs,
			&e.Position,
			&e.CreatedAt)

		return e, err
	})
}

func (p *PostgresFavoriteRepository) Exists(ctx context.Context, movieID int) (bool, error) {
	var exists bool

	err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM favorites WHERE movie_id = $1)`, movieID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (p *PostgresFavoriteRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM favorites`).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// UpdatePositions writes the position of every entry in a single transaction.
func (p *PostgresFavoriteRepository) UpdatePositions(ctx context.Context, entries []domain.FavoriteEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(`UPDATE favorites SET position = $1 WHERE movie_id = $2`, e.Position, e.MovieID)
		}

		err := tx.SendBatch(ctx, batch).Close()
		if err != nil {
			return fmt.Errorf("update %d favorite positions: %w", len(entries), err)
		}

		return nil
	})
}

// Changes listens on the favorites channel and signals once per notification.
// Bursts are collapsed into a single signal. The channel is closed when ctx is
// done or the connection fails.
func (p *PostgresFavoriteRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	pooled, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	// the connection keeps its LISTEN state, so it never goes back to the pool
	conn := pooled.Hijack()

	_, err = conn.Exec(ctx, "LISTEN "+favoritesChannel)
	if err != nil {
		conn.Close(context.Background())
		return nil, err
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		defer conn.Close(context.Background())

		for {
			_, err := conn.WaitForNotification(ctx)
			if err != nil {
				return
			}

			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}()

	return changes, nil
}
