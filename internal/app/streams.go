package app

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 10 * time.Second

// StreamFeed pushes every state of the session feed over a websocket.
func (app *Application) StreamFeed(w http.ResponseWriter, r *http.Request) {
	ctx, err := app.loadSession(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	r = r.WithContext(ctx)

	ctrl, err := app.feedFor(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	streamJSON(app, w, r, ctrl.Observe)
}

func (app *Application) StreamFavorites(w http.ResponseWriter, r *http.Request) {
	streamJSON(app, w, r, app.favorites.Observe)
}

func (app *Application) StreamFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	movieID, err := readMovieIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	streamJSON(app, w, r, func(ctx context.Context) <-chan FavoriteStatusResponse {
		out := make(chan FavoriteStatusResponse)

		go func() {
			defer close(out)

			for favorite := range app.favorites.IsFavorite(ctx, movieID) {
				select {
				case out <- FavoriteStatusResponse{MovieId: movieID, Favorite: favorite}:
				case <-ctx.Done():
					return
				}
			}
		}()

		return out
	})
}

// streamJSON upgrades the request and writes each value from subscribe as a
// JSON text message. It returns when the client goes away or the source
// channel is closed.
func streamJSON[T any](app *Application, w http.ResponseWriter, r *http.Request, subscribe func(context.Context) <-chan T) {
	logger := app.contextGetLogger(r)

	// the server write timeout must not end long lived streams
	err := http.NewResponseController(w).SetWriteDeadline(time.Time{})
	if err != nil {
		logger.Debug("cannot clear write deadline", "error", err)
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	for v := range subscribe(ctx) {
		writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
		err := wsjson.Write(writeCtx, conn, v)
		cancel()

		if err != nil {
			logger.Debug("stream write failed", "error", err)
			return
		}
	}

	if ctx.Err() != nil {
		return
	}

	conn.Close(websocket.StatusNormalClosure, "stream ended")
}
