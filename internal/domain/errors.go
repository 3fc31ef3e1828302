package domain

import "errors"

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrConnection      = errors.New("connection failure")
	ErrCatalogStatus   = errors.New("catalog returned a non-success response")
	ErrInvalidPosition = errors.New("position is out of range")
	ErrAlreadyFavorite = errors.New("movie is already a favorite")
)
