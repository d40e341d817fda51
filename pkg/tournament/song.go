// Package tournament implements the playlist ranking tournament: partitioning
// songs into bounded groups, exhaustive round-robin matchup generation, Elo
// rating updates after each comparison, promotion of group winners into a
// finals pool, and a resumable, persisted state machine driving it all.
package tournament

import (
	"math"
	"sort"
)

// Song is one comparable track from a playlist.
type Song struct {
	ID            string  `json:"id"`                        // Stable unique identifier within a playlist
	Name          string  `json:"name"`                      // Track title
	Artist        string  `json:"artist"`                    // Primary artist display name
	Album         string  `json:"album"`                     // Album display name
	AlbumCoverURL string  `json:"album_cover_url,omitempty"` // Largest available cover image (optional)
	PreviewURL    string  `json:"preview_url,omitempty"`     // Preview audio, resolved lazily (optional)
	Rating        float64 `json:"rating"`                    // Current Elo rating, integral after every update
}

// Tier is a letter grade derived from a song's final rating.
type Tier string

// Tiers from best to worst.
const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// TierFor grades a rating by its z-score against the mean and standard
// deviation of the ranked pool.
func TierFor(rating, mean, stdDev float64) Tier {
	if stdDev == 0 {
		return TierB
	}
	z := (rating - mean) / stdDev
	switch {
	case z >= 1.75:
		return TierS
	case z >= 0.5:
		return TierA
	case z >= -0.5:
		return TierB
	case z >= -1.75:
		return TierC
	default:
		return TierD
	}
}

// AssignTiers computes the tier of every song relative to the pool.
// The returned map is keyed by song ID.
func AssignTiers(songs []Song) map[string]Tier {
	tiers := make(map[string]Tier, len(songs))
	if len(songs) == 0 {
		return tiers
	}

	var sum float64
	for _, s := range songs {
		sum += s.Rating
	}
	mean := sum / float64(len(songs))

	var variance float64
	for _, s := range songs {
		d := s.Rating - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(songs)))

	for _, s := range songs {
		tiers[s.ID] = TierFor(s.Rating, mean, stdDev)
	}
	return tiers
}

// sortByRatingDesc orders songs by rating descending. The sort is stable so
// ties keep their existing order, which the promotion and final-ranking rules
// depend on.
func sortByRatingDesc(songs []Song) {
	sort.SliceStable(songs, func(i, j int) bool {
		return songs[i].Rating > songs[j].Rating
	})
}
