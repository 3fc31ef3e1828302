package feed

import "github.com/metinatakli/cinefeed/internal/domain"

// FilterByGenre returns the movies tagged with genreID in their original
// order. The "All" genre yields an empty list, which callers read as "show
// the unfiltered feed".
func FilterByGenre(movies []domain.Movie, genreID int) []domain.Movie {
	filtered := []domain.Movie{}
	if genreID == domain.AllGenre.ID {
		return filtered
	}

	for _, movie := range movies {
		if movie.HasGenre(genreID) {
			filtered = append(filtered, movie)
		}
	}

	return filtered
}

// BuildGenres prepends the synthetic "All" genre unless the catalog already
// has an id 0 entry, then drops repeated names keeping the first.
func BuildGenres(raw []domain.Genre) []domain.Genre {
	candidates := make([]domain.Genre, 0, len(raw)+1)

	hasZero := false
	for _, g := range raw {
		if g.ID == domain.AllGenre.ID {
			hasZero = true
			break
		}
	}

	if !hasZero {
		candidates = append(candidates, domain.AllGenre)
	}
	candidates = append(candidates, raw...)

	genres := make([]domain.Genre, 0, len(candidates))
	names := make(map[string]struct{}, len(candidates))

	for _, g := range candidates {
		if _, ok := names[g.Name]; ok {
			continue
		}

		names[g.Name] = struct{}{}
		genres = append(genres, g)
	}

	return genres
}
