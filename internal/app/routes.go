package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)

	r.Get("/healthcheck", app.GetHealth)

	r.Group(func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)
		r.Use(app.ensureGuestUserSession)

		r.Get("/feed", app.GetFeed)
		r.Post("/feed/fetch", app.FetchFeed)
		r.Put("/feed/genre", app.SelectGenre)

		r.Get("/movies/search", app.SearchMovies)
		r.Get("/movies/{movieId}", app.GetMovie)

		r.Get("/favorites", app.GetFavorites)
		r.Get("/favorites/{movieId}", app.GetFavoriteStatus)
		r.Post("/favorites/toggle", app.ToggleFavorite)
		r.Post("/favorites/reorder", app.ReorderFavorites)
		r.Post("/favorites/commit", app.CommitFavoritesOrder)
	})

	// websocket routes read the session themselves; the session middleware
	// buffers the response and cannot hand over the connection
	r.Get("/feed/stream", app.StreamFeed)
	r.Get("/favorites/stream", app.StreamFavorites)
	r.Get("/favorites/{movieId}/stream", app.StreamFavoriteStatus)

	return r
}
