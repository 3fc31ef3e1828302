package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/metinatakli/cinefeed/internal/domain"
)

const DefaultSearchPage = 1

func (app *Application) SearchMovies(w http.ResponseWriter, r *http.Request) {
	params := SearchMoviesParams{
		Query: r.URL.Query().Get("query"),
		Page:  DefaultSearchPage,
	}

	if page := r.URL.Query().Get("page"); page != "" {
		pageNum, err := strconv.Atoi(page)
		if err != nil {
			app.badRequestResponse(w, r, errors.New("page must be an integer"))
			return
		}
		params.Page = pageNum
	}

	err := app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	if app.gate.Status() != domain.Online {
		app.serviceUnavailableResponse(w, r)
		return
	}

	page, err := app.catalog.Search(r.Context(), params.Query, params.Page)
	if err != nil {
		app.catalogErrorResponse(w, r, err)
		return
	}

	resp := MovieListResponse{
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		TotalResults: page.TotalResults,
		Movies:       page.Results,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := readMovieIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if app.gate.Status() != domain.Online {
		app.serviceUnavailableResponse(w, r)
		return
	}

	detail, err := app.catalog.FetchDetails(r.Context(), movieID)
	if err != nil {
		app.catalogErrorResponse(w, r, err)
		return
	}

	resp := MovieDetailResponse{
		Movie:    *detail,
		Favorite: app.favorites.Contains(movieID),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) catalogErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrConnection):
		app.contextGetLogger(r).Warn("catalog unreachable", "error", err)
		app.serviceUnavailableResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
