package tournament

import (
	"fmt"
	"strings"
)

// pairKeySeparator joins the two song IDs of a canonical pair key. Gateways
// reject song IDs containing it, so a key always splits back into its IDs.
const pairKeySeparator = "|"

// PairKey builds the canonical key for an unordered pair of song IDs: the two
// IDs sorted lexicographically and joined. PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + pairKeySeparator + b
}

// SplitPairKey recovers the two song IDs from a canonical pair key.
func SplitPairKey(key string) (string, string, error) {
	parts := strings.Split(key, pairKeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed pair key %q", key)
	}
	return parts[0], parts[1], nil
}

// ValidateSongID rejects IDs that cannot participate in pair keys.
func ValidateSongID(id string) error {
	if id == "" {
		return fmt.Errorf("empty song id")
	}
	if strings.Contains(id, pairKeySeparator) {
		return fmt.Errorf("song id %q contains reserved separator %q", id, pairKeySeparator)
	}
	return nil
}

// GenerateScopeMatchups builds the exhaustive matchup map for one scope: an
// entry for every unordered pair of members, all marked incomplete. A scope
// with n members gets exactly n*(n-1)/2 entries.
func GenerateScopeMatchups(songs []Song) map[string]bool {
	matchups := make(map[string]bool, len(songs)*(len(songs)-1)/2)
	for i := 0; i < len(songs); i++ {
		for j := i + 1; j < len(songs); j++ {
			matchups[PairKey(songs[i].ID, songs[j].ID)] = false
		}
	}
	return matchups
}

// GenerateMatchups builds the per-group matchup maps for every group.
func GenerateMatchups(groups [][]Song) map[int]map[string]bool {
	matchups := make(map[int]map[string]bool, len(groups))
	for idx, group := range groups {
		matchups[idx] = GenerateScopeMatchups(group)
	}
	return matchups
}
