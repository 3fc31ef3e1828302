package app

import (
	"errors"
	"net/http"

	"github.com/metinatakli/cinefeed/internal/domain"
)

func (app *Application) GetFavorites(w http.ResponseWriter, r *http.Request) {
	resp := toFavoritesResponse(app.favorites.State())

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	movieID, err := readMovieIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.writeFavoriteStatus(w, r, movieID)
}

// ToggleFavorite adds or removes a movie. When the client states whether it
// believes the movie is a favorite, that belief decides the direction, so a
// repeated request is harmless. Otherwise the stored membership is flipped.
func (app *Application) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var input ToggleFavoriteRequest

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

	movie := input.Movie.toDomain()

	if input.CurrentlyFavorite != nil {
		err = app.favorites.Toggle(r.Context(), movie, *input.CurrentlyFavorite)
	} else {
		_, err = app.favorites.ToggleFavorite(r.Context(), movie)
	}

	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeFavoriteStatus(w, r, movie.ID)
}

// ReorderFavorites swaps two entries of the in-memory order. The change is
// only persisted by CommitFavoritesOrder.
func (app *Application) ReorderFavorites(w http.ResponseWriter, r *http.Request) {
	var input ReorderFavoritesRequest

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

	err = app.favorites.Reorder(*input.From, *input.To)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPosition):
			app.unprocessableEntityResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.GetFavorites(w, r)
}

func (app *Application) CommitFavoritesOrder(w http.ResponseWriter, r *http.Request) {
	err := app.favorites.CommitOrder(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.GetFavorites(w, r)
}

func (app *Application) writeFavoriteStatus(w http.ResponseWriter, r *http.Request, movieID int) {
	resp := FavoriteStatusResponse{
		MovieId:  movieID,
		Favorite: app.favorites.Contains(movieID),
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
