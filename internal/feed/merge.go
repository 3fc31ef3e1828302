package feed

import "github.com/metinatakli/cinefeed/internal/domain"

// Merge appends incoming to existing and drops every movie whose id was
// already seen, keeping the first occurrence. Merging the same page twice
// leaves the result unchanged.
func Merge(existing, incoming []domain.Movie) []domain.Movie {
	merged := make([]domain.Movie, 0, len(existing)+len(incoming))
	seen := make(map[int]struct{}, len(existing)+len(incoming))

	for _, list := range [][]domain.Movie{existing, incoming} {
		for _, movie := range list {
			if _, ok := seen[movie.ID]; ok {
				continue
			}

			seen[movie.ID] = struct{}{}
			merged = append(merged, movie)
		}
	}

	return merged
}
