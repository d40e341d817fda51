package tournament

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/tunebrawl/tunebrawl/pkg/elo"
	"github.com/tunebrawl/tunebrawl/pkg/logger"
)

// Phase is the coarse state of a tournament.
type Phase int

// Tournament phases in order of progression.
const (
	PhaseGroups Phase = iota
	PhaseFinals
	PhaseComplete
)

// String returns a string representation of the Phase
func (p Phase) String() string {
	switch p {
	case PhaseGroups:
		return "groups"
	case PhaseFinals:
		return "finals"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Pair is the comparison currently offered to the user.
type Pair struct {
	Left  Song
	Right Song
}

// Key returns the canonical pair key for the pair.
func (p Pair) Key() string {
	return PairKey(p.Left.ID, p.Right.ID)
}

// Progress reports completion within the current scope.
type Progress struct {
	Scope     ScopeID `json:"scope"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
}

// GroupResult describes a group that just finished play.
type GroupResult struct {
	Index      int    // Group index
	Standings  []Song // Group members by rating descending
	Qualifiers []Song // Members promoted to the finals (at most 2)
}

// Outcome summarizes everything that happened when a comparison was recorded.
type Outcome struct {
	Winner          elo.Update
	Loser           elo.Update
	GroupsCompleted []GroupResult // Groups finished by this outcome, in order
	FinalsStarted   bool          // The finals pool was activated
	Complete        bool          // The whole tournament finished
}

// Config carries the collaborators a Service needs. Store and Source are
// required; everything else has a default. Collaborators are always injected
// rather than reached through package state, so tests and concurrent
// playlists get isolated instances.
type Config struct {
	Store    Store
	Source   TrackSource
	Previews PreviewFinder // Optional; previews are best effort
	Engine   *elo.Engine   // Defaults to elo.DefaultConfig()
	Random   RandomSource  // Defaults to a time-seeded math/rand source
	Log      logger.Logger // Defaults to a no-op logger
	Shuffle  bool          // Shuffle songs before grouping
}

// Service creates, resumes and serves tournaments, one per playlist. A
// playlist's tournament is a single-writer state machine; the Service hands
// out the same instance for the same playlist so one comparison session at a
// time drives it.
type Service struct {
	store    Store
	source   TrackSource
	previews PreviewFinder
	engine   *elo.Engine
	rng      RandomSource
	log      logger.Logger
	shuffle  bool

	mu     sync.Mutex
	active map[string]*Tournament
}

// NewService validates the configuration and creates a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("track source is required")
	}

	engine := cfg.Engine
	if engine == nil {
		var err error
		engine, err = elo.NewEngine(elo.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	rng := cfg.Random
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	return &Service{
		store:    cfg.Store,
		source:   cfg.Source,
		previews: cfg.Previews,
		engine:   engine,
		rng:      rng,
		log:      log,
		shuffle:  cfg.Shuffle,
		active:   make(map[string]*Tournament),
	}, nil
}

// Initialize returns the tournament for a playlist, resuming persisted state
// when it exists and otherwise fetching the track collection, grouping it,
// generating matchups and persisting the initial snapshot.
func (s *Service) Initialize(ctx context.Context, playlistID string) (*Tournament, error) {
	s.mu.Lock()
	if t, ok := s.active[playlistID]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	state, err := s.store.LoadState(ctx, playlistID)
	switch {
	case err == nil:
		t, rerr := s.resume(state)
		if rerr != nil {
			return nil, rerr
		}
		s.log.Info("tournament resumed",
			"playlist", playlistID, "phase", t.Phase().String(), "group", t.CurrentGroup())
		return s.remember(playlistID, t), nil
	case errors.Is(err, ErrStateNotFound):
		t, cerr := s.create(ctx, playlistID)
		if cerr != nil {
			return nil, cerr
		}
		s.log.Info("tournament created",
			"playlist", playlistID, "songs", len(t.songs), "groups", len(t.groups))
		return s.remember(playlistID, t), nil
	default:
		return nil, err
	}
}

// Get returns the tournament for a playlist only if one is active or on
// record: unlike Initialize it never fetches the track collection, so an
// unknown playlist fails with ErrStateNotFound.
func (s *Service) Get(ctx context.Context, playlistID string) (*Tournament, error) {
	s.mu.Lock()
	if t, ok := s.active[playlistID]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	state, err := s.store.LoadState(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	t, err := s.resume(state)
	if err != nil {
		return nil, err
	}
	return s.remember(playlistID, t), nil
}

// remember caches a tournament, keeping the first instance if two sessions
// raced to initialize the same playlist.
func (s *Service) remember(playlistID string, t *Tournament) *Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.active[playlistID]; ok {
		return existing
	}
	s.active[playlistID] = t
	return t
}

// create builds a fresh tournament from the track source.
func (s *Service) create(ctx context.Context, playlistID string) (*Tournament, error) {
	songs, err := s.source.FetchTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(songs) < 2 {
		return nil, fmt.Errorf("%w: playlist %s has %d songs", ErrNotEnoughSongs, playlistID, len(songs))
	}

	seen := make(map[string]struct{}, len(songs))
	for i := range songs {
		if err := ValidateSongID(songs[i].ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		if _, dup := seen[songs[i].ID]; dup {
			return nil, fmt.Errorf("%w: duplicate song id %q", ErrGateway, songs[i].ID)
		}
		seen[songs[i].ID] = struct{}{}
		if songs[i].Rating == 0 {
			songs[i].Rating = s.engine.InitialRating
		}
	}

	// Ratings may survive a reset; a re-fetched collection merges them in
	// rather than starting the returning songs over at the baseline.
	persisted, err := s.store.LoadRatings(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	for i := range songs {
		if rating, ok := persisted[songs[i].ID]; ok {
			songs[i].Rating = rating
		}
	}

	if s.shuffle {
		songs = ShuffleSongs(songs, s.rng)
	}

	groups := GroupSongs(songs)
	groupIDs := make([][]string, len(groups))
	for i, g := range groups {
		ids := make([]string, len(g))
		for j, song := range g {
			ids[j] = song.ID
		}
		groupIDs[i] = ids
	}

	state := &State{
		PlaylistID: playlistID,
		Songs:      songs,
		Groups:     groupIDs,
		Matchups:   GenerateMatchups(groups),
		Finalists:  nil,
	}
	if err := s.store.SaveSnapshot(ctx, state); err != nil {
		return nil, err
	}

	t := s.newTournament(state)
	if err := t.position(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// resume rebuilds a tournament from a persisted snapshot. The resume point is
// the first group index with an incomplete matchup; a fully played group
// phase positions directly into (or past) the finals.
func (s *Service) resume(state *State) (*Tournament, error) {
	if len(state.Songs) < 2 {
		return nil, fmt.Errorf("%w: persisted state has %d songs", ErrNotEnoughSongs, len(state.Songs))
	}
	t := s.newTournament(state)

	resumeAt := len(state.Groups) - 1
	for i := range state.Groups {
		m, ok := state.Matchups[i]
		if !ok {
			return nil, fmt.Errorf("%w: group %d", ErrMissingScopeData, i)
		}
		if hasIncomplete(m) {
			resumeAt = i
			break
		}
	}
	t.currentGroup = resumeAt

	if err := t.position(context.Background()); err != nil {
		return nil, err
	}
	return t, nil
}

// Reset clears a playlist's persisted tournament, returning it to the
// uninitialized state. Ratings are cleared too unless keepRatings is set.
func (s *Service) Reset(ctx context.Context, playlistID string, keepRatings bool) error {
	if err := s.store.Reset(ctx, playlistID, keepRatings); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.active, playlistID)
	s.mu.Unlock()
	s.log.Info("tournament reset", "playlist", playlistID, "keep_ratings", keepRatings)
	return nil
}

// newTournament wires a tournament around a state snapshot.
func (s *Service) newTournament(state *State) *Tournament {
	index := make(map[string]int, len(state.Songs))
	for i, song := range state.Songs {
		index[song.ID] = i
	}
	return &Tournament{
		playlistID:     state.PlaylistID,
		songs:          state.Songs,
		index:          index,
		groups:         state.Groups,
		matchups:       state.Matchups,
		finalists:      state.Finalists,
		finalsMatchups: state.FinalsMatchups,
		phase:          PhaseGroups,
		engine:         s.engine,
		store:          s.store,
		previews:       s.previews,
		rng:            s.rng,
		log:            s.log,
	}
}

// Tournament is the state machine for one playlist's ranking run. Operations
// are expected to arrive serially from one comparison session; the internal
// lock only guards against accidental concurrent use, it is not a scheduling
// mechanism.
type Tournament struct {
	mu sync.Mutex

	playlistID     string
	songs          []Song
	index          map[string]int
	groups         [][]string
	matchups       map[int]map[string]bool
	finalists      []string
	finalsMatchups map[string]bool
	phase          Phase
	currentGroup   int
	current        *Pair

	engine   *elo.Engine
	store    Store
	previews PreviewFinder
	rng      RandomSource
	log      logger.Logger
}

// PlaylistID returns the playlist this tournament ranks.
func (t *Tournament) PlaylistID() string { return t.playlistID }

// Phase returns the current phase.
func (t *Tournament) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// CurrentGroup returns the index of the group being played. Only meaningful
// during the group phase.
func (t *Tournament) CurrentGroup() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentGroup
}

// GroupCount returns the number of groups.
func (t *Tournament) GroupCount() int { return len(t.groups) }

// Songs returns a copy of the song collection with current ratings.
func (t *Tournament) Songs() []Song {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Song, len(t.songs))
	copy(out, t.songs)
	return out
}

// Song returns the song with the given ID.
func (t *Tournament) Song(id string) (Song, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.index[id]
	if !ok {
		return Song{}, false
	}
	return t.songs[idx], true
}

// CurrentPair returns the pair currently offered for comparison, or nil when
// the tournament is complete. A pair can be missing while play remains if a
// phase transition failed to persist after the last outcome; in that case the
// transition is retried here so the session can continue once the store
// recovers.
func (t *Tournament) CurrentPair() *Pair {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil && t.phase != PhaseComplete {
		if err := t.advance(context.Background(), nil); err != nil {
			t.log.Error("advance retry failed", "playlist", t.playlistID, "error", err)
			return nil
		}
	}
	if t.current == nil {
		return nil
	}
	pair := *t.current
	return &pair
}

// Progress reports completion within the current scope: the group being
// played during the group phase, the finals pool afterwards.
func (t *Tournament) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	scope, m := t.currentScope()
	completed := 0
	for _, done := range m {
		if done {
			completed++
		}
	}
	return Progress{Scope: scope, Completed: completed, Total: len(m)}
}

// RecordOutcome records one comparison: the winner's and loser's ratings are
// updated through the Elo engine, the matchup is marked complete, both are
// persisted transactionally, and the tournament advances. Submitting a pair
// that is already complete fails with ErrStaleMatchup so a client retry can
// never apply a rating delta twice.
func (t *Tournament) RecordOutcome(ctx context.Context, winnerID, loserID string) (*Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if winnerID == loserID {
		return nil, fmt.Errorf("%w: a song cannot play itself", ErrUnknownSong)
	}
	winnerIdx, ok := t.index[winnerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSong, winnerID)
	}
	loserIdx, ok := t.index[loserID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSong, loserID)
	}

	scope, m := t.currentScope()
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingScopeData, scope)
	}

	// The key is outcome-agnostic: the same pair yields the same key no
	// matter who won.
	key := PairKey(winnerID, loserID)
	done, exists := m[key]
	if !exists {
		return nil, fmt.Errorf("%w: pair %s is not in scope %s", ErrUnknownSong, key, scope)
	}
	if done {
		return nil, fmt.Errorf("%w: %s", ErrStaleMatchup, key)
	}

	winner := t.songs[winnerIdx]
	loser := t.songs[loserIdx]
	newWinner, newLoser, err := t.engine.UpdateRatings(winner.Rating, loser.Rating)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Winner: elo.Update{SongID: winnerID, OldRating: winner.Rating, NewRating: newWinner, Delta: newWinner - winner.Rating},
		Loser:  elo.Update{SongID: loserID, OldRating: loser.Rating, NewRating: newLoser, Delta: newLoser - loser.Rating},
	}

	// Persist before mutating memory: a failed write leaves both sides on
	// the last recorded outcome, and the caller can retry the same pair.
	if err := t.store.RecordResult(ctx, t.playlistID, scope, key, outcome.Winner, outcome.Loser); err != nil {
		return nil, err
	}

	t.songs[winnerIdx].Rating = newWinner
	t.songs[loserIdx].Rating = newLoser
	m[key] = true
	t.current = nil

	if err := t.advance(ctx, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// FinalRanking returns every finalist ordered by rating descending once the
// finals are exhausted. Ties keep their promotion order.
func (t *Tournament) FinalRanking() ([]Song, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseComplete {
		return nil, fmt.Errorf("%w: phase %s", ErrNotReady, t.phase)
	}
	ranking := make([]Song, 0, len(t.finalists))
	for _, id := range t.finalists {
		ranking = append(ranking, t.songs[t.index[id]])
	}
	sortByRatingDesc(ranking)
	return ranking, nil
}

// Finalists returns the promoted songs in promotion order.
func (t *Tournament) Finalists() []Song {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Song, 0, len(t.finalists))
	for _, id := range t.finalists {
		out = append(out, t.songs[t.index[id]])
	}
	return out
}

// ResolvePreview looks up preview audio for a song through the preview
// fallback and persists a hit. Failures are logged and swallowed; a missing
// preview never blocks a comparison.
func (t *Tournament) ResolvePreview(ctx context.Context, songID string) string {
	t.mu.Lock()
	idx, ok := t.index[songID]
	if !ok || t.previews == nil {
		t.mu.Unlock()
		return ""
	}
	song := t.songs[idx]
	t.mu.Unlock()

	if song.PreviewURL != "" {
		return song.PreviewURL
	}

	url, err := t.previews.FindPreview(ctx, song.Name, song.Artist)
	if err != nil {
		if !errors.Is(err, ErrPreviewNotFound) {
			t.log.Warn("preview lookup failed", "song", songID, "error", err)
		}
		return ""
	}

	t.mu.Lock()
	t.songs[idx].PreviewURL = url
	t.mu.Unlock()

	if err := t.store.SavePreviewURL(ctx, t.playlistID, songID, url); err != nil {
		t.log.Warn("preview url not persisted", "song", songID, "error", err)
	}
	return url
}

// position computes the first offered pair after creation or resume. It also
// performs any completion handling the persisted state already implies, such
// as promoting a fully played final group or activating the finals.
func (t *Tournament) position(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.advance(ctx, nil)
}

// currentScope returns the scope being played and its matchup map.
func (t *Tournament) currentScope() (ScopeID, map[string]bool) {
	if t.phase == PhaseGroups {
		return GroupScope(t.currentGroup), t.matchups[t.currentGroup]
	}
	return ScopeFinals, t.finalsMatchups
}

// advance is the single transition step run after every recorded outcome (and
// once on initialization): find the next pair in the current scope, or close
// the scope out by promoting qualifiers, opening the next group or the
// finals, and finally marking the tournament complete. outcome, when
// non-nil, collects the
// transition events for the caller.
func (t *Tournament) advance(ctx context.Context, outcome *Outcome) error {
	for {
		switch t.phase {
		case PhaseGroups:
			m, ok := t.matchups[t.currentGroup]
			if !ok {
				return fmt.Errorf("%w: group %d", ErrMissingScopeData, t.currentGroup)
			}
			if t.offerPair(GroupScope(t.currentGroup), m) {
				return nil
			}

			result, err := t.completeGroup(ctx, t.currentGroup)
			if err != nil {
				return err
			}
			if outcome != nil && result != nil {
				outcome.GroupsCompleted = append(outcome.GroupsCompleted, *result)
			}

			if t.currentGroup == len(t.groups)-1 {
				if err := t.startFinals(ctx); err != nil {
					return err
				}
				if outcome != nil {
					outcome.FinalsStarted = true
				}
				t.phase = PhaseFinals
			} else {
				t.currentGroup++
			}

		case PhaseFinals:
			if t.finalsMatchups == nil {
				return fmt.Errorf("%w: finals", ErrMissingScopeData)
			}
			if t.offerPair(ScopeFinals, t.finalsMatchups) {
				return nil
			}
			t.phase = PhaseComplete

		case PhaseComplete:
			t.current = nil
			if outcome != nil {
				outcome.Complete = true
			}
			return nil
		}
	}
}

// offerPair selects a uniformly random incomplete pair from the scope and
// makes it current. Returns false when the scope is exhausted. Candidate keys
// are sorted before selection so an injected deterministic random source sees
// a stable ordering.
func (t *Tournament) offerPair(scope ScopeID, m map[string]bool) bool {
	remaining := make([]string, 0, len(m))
	for key, done := range m {
		if !done {
			remaining = append(remaining, key)
		}
	}
	if len(remaining) == 0 {
		return false
	}
	sort.Strings(remaining)

	key := remaining[t.rng.Intn(len(remaining))]
	leftID, rightID, err := SplitPairKey(key)
	if err != nil {
		// Corrupt persisted key; surface on the next operation instead of
		// silently skipping work.
		t.log.Error("corrupt pair key", "scope", scope, "key", key)
		return false
	}
	t.current = &Pair{
		Left:  t.songs[t.index[leftID]],
		Right: t.songs[t.index[rightID]],
	}
	return true
}

// completeGroup promotes the group's top songs into the finalist pool. A
// group already promoted (detected on resume through the persisted finalist
// count) is skipped. Returns the group result for callers that present it.
func (t *Tournament) completeGroup(ctx context.Context, groupIdx int) (*GroupResult, error) {
	standings := make([]Song, 0, len(t.groups[groupIdx]))
	for _, id := range t.groups[groupIdx] {
		standings = append(standings, t.songs[t.index[id]])
	}
	sortByRatingDesc(standings)

	qualifierCount := len(standings)
	if qualifierCount > 2 {
		qualifierCount = 2
	}
	qualifiers := standings[:qualifierCount]

	result := &GroupResult{Index: groupIdx, Standings: standings, Qualifiers: qualifiers}

	if groupIdx < t.promotedGroups() {
		// Resume of an already-promoted group; the finalists are on record.
		return nil, nil
	}

	before := len(t.finalists)
	for _, q := range qualifiers {
		t.finalists = append(t.finalists, q.ID)
	}
	if err := t.store.SaveFinalists(ctx, t.playlistID, t.finalists); err != nil {
		// Unwind the promotion so a retry does not count these qualifiers
		// as already on record.
		t.finalists = t.finalists[:before]
		return nil, err
	}
	t.log.Info("group complete", "playlist", t.playlistID, "group", groupIdx,
		"qualifiers", len(qualifiers))
	return result, nil
}

// promotedGroups counts how many leading groups have already contributed
// their qualifiers, derived from the persisted finalist count. Groups
// complete strictly in order, so the count fully determines which ones.
func (t *Tournament) promotedGroups() int {
	total := 0
	for i, g := range t.groups {
		q := len(g)
		if q > 2 {
			q = 2
		}
		if total+q > len(t.finalists) {
			return i
		}
		total += q
	}
	return len(t.groups)
}

// startFinals builds and persists the finals matchup map over the flat
// finalist pool, unless a resume already found it on record.
func (t *Tournament) startFinals(ctx context.Context) error {
	if t.finalsMatchups != nil {
		return nil
	}
	finalists := make([]Song, 0, len(t.finalists))
	for _, id := range t.finalists {
		finalists = append(finalists, t.songs[t.index[id]])
	}
	t.finalsMatchups = GenerateScopeMatchups(finalists)
	if err := t.store.SaveMatchups(ctx, t.playlistID, ScopeFinals, t.finalsMatchups); err != nil {
		t.finalsMatchups = nil
		return err
	}
	t.log.Info("finals started", "playlist", t.playlistID, "finalists", len(finalists),
		"matchups", len(t.finalsMatchups))
	return nil
}

// hasIncomplete reports whether a matchup map still has work.
func hasIncomplete(m map[string]bool) bool {
	for _, done := range m {
		if !done {
			return true
		}
	}
	return false
}
