package domain

type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindNoConnection ErrorKind = "NO_CONNECTION"
	ErrorKindEmptyResult  ErrorKind = "EMPTY_RESULT"
	ErrorKindUnknown      ErrorKind = "UNKNOWN"
)

// Message returns the user-facing text for the error kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrorKindNone:
		return ""
	case ErrorKindNoConnection:
		return "No Internet Connection"
	case ErrorKindEmptyResult:
		return "No movies found"
	default:
		return "Unknown error"
	}
}

// FeedState is the snapshot published by the feed controller. Slices inside a
// published state are never mutated afterwards.
type FeedState struct {
	IsLoading       bool      `json:"isLoading"`
	IsSuccess       bool      `json:"isSuccess"`
	IsError         bool      `json:"isError"`
	ErrorKind       ErrorKind `json:"errorKind,omitempty"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	Movies          []Movie   `json:"movies"`
	FilteredMovies  []Movie   `json:"filteredMovies"`
	Genres          []Genre   `json:"genres"`
	SelectedGenreID int       `json:"selectedGenreId"`
	CurrentPage     int       `json:"currentPage"`
	TotalPages      int       `json:"totalPages"`
	EndReached      bool      `json:"endReached"`
	Online          bool      `json:"online"`
}

// VisibleMovies is what a list view renders: the filtered view when a filter
// matched anything, otherwise the whole feed.
func (s FeedState) VisibleMovies() []Movie {
	if len(s.FilteredMovies) > 0 {
		return s.FilteredMovies
	}

	return s.Movies
}
