package app

import (
	"net/http"

	"github.com/metinatakli/cinefeed/internal/domain"
)

func (app *Application) GetFeed(w http.ResponseWriter, r *http.Request) {
	ctrl, err := app.feedFor(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.writeFeed(w, r, ctrl.State())
}

// FetchFeed loads the next catalog page into the session feed and returns the
// settled state. Failures are reported inside the state, not as an HTTP error.
func (app *Application) FetchFeed(w http.ResponseWriter, r *http.Request) {
	ctrl, err := app.feedFor(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctrl.FetchMovies(r.Context())

	app.writeFeed(w, r, ctrl.State())
}

func (app *Application) SelectGenre(w http.ResponseWriter, r *http.Request) {
	var input SelectGenreRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	ctrl, err := app.feedFor(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctrl.OnGenreTypeSelected(*input.GenreId)

	app.writeFeed(w, r, ctrl.State())
}

func (app *Application) writeFeed(w http.ResponseWriter, r *http.Request, state domain.FeedState) {
	err := app.writeJSON(w, http.StatusOK, FeedResponse{Feed: state}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
