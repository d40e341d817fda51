package tournament

import (
	"context"
	"strconv"
	"strings"

	"github.com/tunebrawl/tunebrawl/pkg/elo"
)

// ScopeID names one matchup scope for persistence: a numbered group while the
// group phase runs, or the flat finals pool.
type ScopeID string

// ScopeFinals is the scope of the finals matchup map.
const ScopeFinals ScopeID = "finals"

// GroupScope returns the scope ID for a group index.
func GroupScope(index int) ScopeID {
	return ScopeID("group:" + strconv.Itoa(index))
}

// GroupIndex parses a group scope back into its index. The second return is
// false for the finals scope or a malformed value.
func (s ScopeID) GroupIndex() (int, bool) {
	raw, ok := strings.CutPrefix(string(s), "group:")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// State is the persisted snapshot of one playlist's tournament. Groups are
// stored as ordered song-ID lists and matchups as pair-key to completion-flag
// maps; everything else the state machine needs is derived from these.
type State struct {
	PlaylistID     string               `json:"playlist_id"`
	Songs          []Song               `json:"songs"`  // Ordered; carries current ratings
	Groups         [][]string           `json:"groups"` // Ordered song IDs per group
	Matchups       map[int]map[string]bool `json:"matchups"`
	Finalists      []string             `json:"finalists"`                 // Promotion order
	FinalsMatchups map[string]bool      `json:"finals_matchups,omitempty"` // Nil until finals begin
}

// Store is the persistence gateway the state machine writes through. All
// operations are keyed by an opaque playlist identifier. Implementations must
// return ErrStateNotFound from LoadState when nothing is persisted and wrap
// every other failure in ErrGateway; they must never report a failure as
// empty state.
type Store interface {
	// LoadState reconstructs the persisted snapshot for a playlist.
	LoadState(ctx context.Context, playlistID string) (*State, error)

	// SaveSnapshot persists the initial snapshot: song order, groups and all
	// group matchup maps.
	SaveSnapshot(ctx context.Context, state *State) error

	// SaveMatchups persists a whole matchup map for one scope. Used when the
	// finals pool is activated.
	SaveMatchups(ctx context.Context, playlistID string, scope ScopeID, matchups map[string]bool) error

	// RecordResult transactionally persists one comparison outcome: both new
	// ratings and the completion flag for the pair key land together or not
	// at all, plus a journal row for the audit trail.
	RecordResult(ctx context.Context, playlistID string, scope ScopeID, pairKey string, winner, loser elo.Update) error

	// SaveFinalists persists the promotion-ordered finalist ID list.
	SaveFinalists(ctx context.Context, playlistID string, finalists []string) error

	// LoadRatings returns any ratings persisted for a playlist's songs, keyed
	// by song ID. Ratings can outlive a reset, so a re-fetch of the track
	// collection merges these in instead of overwriting them. An empty map
	// means no ratings survive.
	LoadRatings(ctx context.Context, playlistID string) (map[string]float64, error)

	// SavePreviewURL persists a lazily resolved preview URL for a song.
	SavePreviewURL(ctx context.Context, playlistID, songID, previewURL string) error

	// Reset clears groups, matchups, finalists and song order for a playlist.
	// When keepRatings is true the song ratings survive for the next run;
	// otherwise the songs are cleared with everything else.
	Reset(ctx context.Context, playlistID string, keepRatings bool) error
}

// TrackSource supplies the initial song collection for a playlist. Ratings of
// never-seen songs default to the engine's initial rating; implementations
// must not overwrite ratings the caller merges in from persisted state.
type TrackSource interface {
	FetchTracks(ctx context.Context, playlistID string) ([]Song, error)
}

// PreviewFinder locates preview audio for a track by name and artist.
// Returns ErrPreviewNotFound when no preview exists. Strictly best effort.
type PreviewFinder interface {
	FindPreview(ctx context.Context, name, artist string) (string, error)
}

// RandomSource abstracts the randomness behind pair selection so tests can
// supply a deterministic sequence.
type RandomSource interface {
	// Intn returns a uniform value in [0, n). Panics if n <= 0.
	Intn(n int) int
}
