package tournament

// maxSingleGroup is the largest collection played as one round-robin group.
// 8 members cost C(8,2) = 28 comparisons, which is still a tolerable sitting.
const maxSingleGroup = 8

// GroupSongs partitions an ordered song collection into bounded groups for
// round-robin play.
//
// Collections of 8 or fewer songs form a single group. Larger collections are
// sliced into consecutive chunks of size 6, 7 or 8, choosing the size that
// minimizes the leftover chunk; ties prefer the smaller size. The final chunk
// may be shorter than the rest. Callers must reject collections with fewer
// than 2 songs before grouping.
func GroupSongs(songs []Song) [][]Song {
	total := len(songs)
	if total <= maxSingleGroup {
		return [][]Song{songs}
	}

	groupSize := 6
	bestRemainder := total % 6
	for _, g := range []int{7, 8} {
		if r := total % g; r < bestRemainder {
			groupSize = g
			bestRemainder = r
		}
	}

	groups := make([][]Song, 0, (total+groupSize-1)/groupSize)
	for i := 0; i < total; i += groupSize {
		end := i + groupSize
		if end > total {
			end = total
		}
		groups = append(groups, songs[i:end:end])
	}
	return groups
}

// ShuffleSongs reorders a copy of the collection using the supplied random
// source, for callers that want group membership decoupled from playlist
// order. The input slice is not modified.
func ShuffleSongs(songs []Song, rng RandomSource) []Song {
	shuffled := make([]Song, len(songs))
	copy(shuffled, songs)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
