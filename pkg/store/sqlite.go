// Package store persists tournament state in SQLite. One database holds any
// number of playlists; every table is keyed by playlist ID so concurrent
// tournaments never touch each other's rows.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tunebrawl/tunebrawl/pkg/elo"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// SQLite is the tournament.Store implementation backed by a SQLite file.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", tournament.ErrGateway, path, err)
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("%w: %v", tournament.ErrGateway, err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database connection.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs database migrations
func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS songs (
			playlist_id TEXT NOT NULL,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			cover_url TEXT,
			preview_url TEXT,
			rating REAL NOT NULL,
			PRIMARY KEY (playlist_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS song_groups (
			playlist_id TEXT NOT NULL,
			group_idx INTEGER NOT NULL,
			position INTEGER NOT NULL,
			song_id TEXT NOT NULL,
			PRIMARY KEY (playlist_id, group_idx, position)
		)`,
		`CREATE TABLE IF NOT EXISTS matchups (
			playlist_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			pair_key TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (playlist_id, scope, pair_key)
		)`,
		`CREATE TABLE IF NOT EXISTS finalists (
			playlist_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			song_id TEXT NOT NULL,
			PRIMARY KEY (playlist_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			playlist_id TEXT NOT NULL,
			song_id TEXT NOT NULL,
			rating REAL NOT NULL,
			PRIMARY KEY (playlist_id, song_id)
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id TEXT PRIMARY KEY,
			playlist_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			pair_key TEXT NOT NULL,
			winner_id TEXT NOT NULL,
			loser_id TEXT NOT NULL,
			winner_rating REAL NOT NULL,
			loser_rating REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_songs_playlist ON songs(playlist_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_matchups_playlist ON matchups(playlist_id, scope)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_playlist ON outcomes(playlist_id, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("%w: migrate: %v", tournament.ErrGateway, err)
		}
	}
	return nil
}

// LoadState reconstructs the persisted snapshot for a playlist. A playlist
// with no song rows has no tournament on record.
func (s *SQLite) LoadState(ctx context.Context, playlistID string) (*tournament.State, error) {
	songs, err := s.loadSongs(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: %s", tournament.ErrStateNotFound, playlistID)
	}

	state := &tournament.State{
		PlaylistID: playlistID,
		Songs:      songs,
		Matchups:   make(map[int]map[string]bool),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT group_idx, song_id FROM song_groups WHERE playlist_id = ? ORDER BY group_idx, position`,
		playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: load groups: %v", tournament.ErrGateway, err)
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var songID string
		if err := rows.Scan(&idx, &songID); err != nil {
			return nil, fmt.Errorf("%w: scan group row: %v", tournament.ErrGateway, err)
		}
		for len(state.Groups) <= idx {
			state.Groups = append(state.Groups, nil)
		}
		state.Groups[idx] = append(state.Groups[idx], songID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load groups: %v", tournament.ErrGateway, err)
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT scope, pair_key, completed FROM matchups WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: load matchups: %v", tournament.ErrGateway, err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var scope, pairKey string
		var completed bool
		if err := mrows.Scan(&scope, &pairKey, &completed); err != nil {
			return nil, fmt.Errorf("%w: scan matchup row: %v", tournament.ErrGateway, err)
		}
		if tournament.ScopeID(scope) == tournament.ScopeFinals {
			if state.FinalsMatchups == nil {
				state.FinalsMatchups = make(map[string]bool)
			}
			state.FinalsMatchups[pairKey] = completed
			continue
		}
		idx, ok := tournament.ScopeID(scope).GroupIndex()
		if !ok {
			return nil, fmt.Errorf("%w: unknown scope %q", tournament.ErrGateway, scope)
		}
		if state.Matchups[idx] == nil {
			state.Matchups[idx] = make(map[string]bool)
		}
		state.Matchups[idx][pairKey] = completed
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load matchups: %v", tournament.ErrGateway, err)
	}

	// Singleton groups carry no matchup rows; give them their empty maps
	for idx := range state.Groups {
		if state.Matchups[idx] == nil {
			state.Matchups[idx] = make(map[string]bool)
		}
	}

	frows, err := s.db.QueryContext(ctx,
		`SELECT song_id FROM finalists WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: load finalists: %v", tournament.ErrGateway, err)
	}
	defer frows.Close()
	for frows.Next() {
		var songID string
		if err := frows.Scan(&songID); err != nil {
			return nil, fmt.Errorf("%w: scan finalist row: %v", tournament.ErrGateway, err)
		}
		state.Finalists = append(state.Finalists, songID)
	}
	if err := frows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load finalists: %v", tournament.ErrGateway, err)
	}

	if err := validateState(state); err != nil {
		return nil, err
	}
	return state, nil
}

// validateState fails fast on rows the state machine would trip over later:
// unparsable pair keys, group or finalist members that are not in the song
// collection, song IDs carrying the key separator.
func validateState(state *tournament.State) error {
	known := make(map[string]struct{}, len(state.Songs))
	for _, song := range state.Songs {
		if err := tournament.ValidateSongID(song.ID); err != nil {
			return fmt.Errorf("%w: song row: %v", tournament.ErrGateway, err)
		}
		known[song.ID] = struct{}{}
	}

	checkMember := func(table, id string) error {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %s row references unknown song %q", tournament.ErrGateway, table, id)
		}
		return nil
	}
	for _, group := range state.Groups {
		for _, id := range group {
			if err := checkMember("song_groups", id); err != nil {
				return err
			}
		}
	}
	for _, id := range state.Finalists {
		if err := checkMember("finalists", id); err != nil {
			return err
		}
	}

	checkKeys := func(m map[string]bool) error {
		for key := range m {
			a, b, err := tournament.SplitPairKey(key)
			if err != nil {
				return fmt.Errorf("%w: matchup row: %v", tournament.ErrGateway, err)
			}
			if _, ok := known[a]; !ok {
				return fmt.Errorf("%w: matchup %q references unknown song", tournament.ErrGateway, key)
			}
			if _, ok := known[b]; !ok {
				return fmt.Errorf("%w: matchup %q references unknown song", tournament.ErrGateway, key)
			}
		}
		return nil
	}
	for _, m := range state.Matchups {
		if err := checkKeys(m); err != nil {
			return err
		}
	}
	return checkKeys(state.FinalsMatchups)
}

func (s *SQLite) loadSongs(ctx context.Context, playlistID string) ([]tournament.Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, artist, album, cover_url, preview_url, rating
		 FROM songs WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: load songs: %v", tournament.ErrGateway, err)
	}
	defer rows.Close()

	var songs []tournament.Song
	for rows.Next() {
		var song tournament.Song
		// artist, album and the URL columns are nullable; older rows written
		// before those fields existed carry NULLs.
		var artist, album, coverURL, previewURL sql.NullString
		if err := rows.Scan(&song.ID, &song.Name, &artist, &album,
			&coverURL, &previewURL, &song.Rating); err != nil {
			return nil, fmt.Errorf("%w: scan song row: %v", tournament.ErrGateway, err)
		}
		song.Artist = artist.String
		song.Album = album.String
		song.AlbumCoverURL = coverURL.String
		song.PreviewURL = previewURL.String
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load songs: %v", tournament.ErrGateway, err)
	}
	return songs, nil
}

// SaveSnapshot persists the initial snapshot, replacing whatever tournament
// rows the playlist had. Ratings and the outcome journal are left alone.
func (s *SQLite) SaveSnapshot(ctx context.Context, state *tournament.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin snapshot: %v", tournament.ErrGateway, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"songs", "song_groups", "matchups", "finalists"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE playlist_id = ?", table), state.PlaylistID); err != nil {
			return fmt.Errorf("%w: clear %s: %v", tournament.ErrGateway, table, err)
		}
	}

	for i, song := range state.Songs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO songs (playlist_id, id, position, name, artist, album, cover_url, preview_url, rating)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			state.PlaylistID, song.ID, i, song.Name, song.Artist, song.Album,
			song.AlbumCoverURL, song.PreviewURL, song.Rating); err != nil {
			return fmt.Errorf("%w: insert song %s: %v", tournament.ErrGateway, song.ID, err)
		}
	}

	for groupIdx, group := range state.Groups {
		for pos, songID := range group {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO song_groups (playlist_id, group_idx, position, song_id) VALUES (?, ?, ?, ?)`,
				state.PlaylistID, groupIdx, pos, songID); err != nil {
				return fmt.Errorf("%w: insert group row: %v", tournament.ErrGateway, err)
			}
		}
	}

	for groupIdx, matchups := range state.Matchups {
		scope := tournament.GroupScope(groupIdx)
		for pairKey, completed := range matchups {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO matchups (playlist_id, scope, pair_key, completed) VALUES (?, ?, ?, ?)`,
				state.PlaylistID, string(scope), pairKey, completed); err != nil {
				return fmt.Errorf("%w: insert matchup row: %v", tournament.ErrGateway, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit snapshot: %v", tournament.ErrGateway, err)
	}
	return nil
}

// SaveMatchups persists a whole matchup map for one scope.
func (s *SQLite) SaveMatchups(ctx context.Context, playlistID string, scope tournament.ScopeID, matchups map[string]bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin matchups: %v", tournament.ErrGateway, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM matchups WHERE playlist_id = ? AND scope = ?`, playlistID, string(scope)); err != nil {
		return fmt.Errorf("%w: clear scope %s: %v", tournament.ErrGateway, scope, err)
	}
	for pairKey, completed := range matchups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO matchups (playlist_id, scope, pair_key, completed) VALUES (?, ?, ?, ?)`,
			playlistID, string(scope), pairKey, completed); err != nil {
			return fmt.Errorf("%w: insert matchup row: %v", tournament.ErrGateway, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit matchups: %v", tournament.ErrGateway, err)
	}
	return nil
}

// RecordResult transactionally persists one comparison outcome: both new
// ratings, the completion flag for the pair and a journal row.
func (s *SQLite) RecordResult(ctx context.Context, playlistID string, scope tournament.ScopeID, pairKey string, winner, loser elo.Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin result: %v", tournament.ErrGateway, err)
	}
	defer tx.Rollback()

	for _, u := range []elo.Update{winner, loser} {
		if _, err := tx.ExecContext(ctx,
			`UPDATE songs SET rating = ? WHERE playlist_id = ? AND id = ?`,
			u.NewRating, playlistID, u.SongID); err != nil {
			return fmt.Errorf("%w: update rating for %s: %v", tournament.ErrGateway, u.SongID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ratings (playlist_id, song_id, rating) VALUES (?, ?, ?)
			 ON CONFLICT (playlist_id, song_id) DO UPDATE SET rating = excluded.rating`,
			playlistID, u.SongID, u.NewRating); err != nil {
			return fmt.Errorf("%w: upsert rating for %s: %v", tournament.ErrGateway, u.SongID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE matchups SET completed = 1 WHERE playlist_id = ? AND scope = ? AND pair_key = ?`,
		playlistID, string(scope), pairKey)
	if err != nil {
		return fmt.Errorf("%w: complete matchup %s: %v", tournament.ErrGateway, pairKey, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: matchup %s not found in scope %s", tournament.ErrGateway, pairKey, scope)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO outcomes (id, playlist_id, scope, pair_key, winner_id, loser_id, winner_rating, loser_rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), playlistID, string(scope), pairKey,
		winner.SongID, loser.SongID, winner.NewRating, loser.NewRating,
		time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: journal outcome: %v", tournament.ErrGateway, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit result: %v", tournament.ErrGateway, err)
	}
	return nil
}

// SaveFinalists persists the promotion-ordered finalist list.
func (s *SQLite) SaveFinalists(ctx context.Context, playlistID string, finalists []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin finalists: %v", tournament.ErrGateway, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM finalists WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("%w: clear finalists: %v", tournament.ErrGateway, err)
	}
	for pos, songID := range finalists {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO finalists (playlist_id, position, song_id) VALUES (?, ?, ?)`,
			playlistID, pos, songID); err != nil {
			return fmt.Errorf("%w: insert finalist %s: %v", tournament.ErrGateway, songID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit finalists: %v", tournament.ErrGateway, err)
	}
	return nil
}

// LoadRatings returns the ratings persisted for a playlist, keyed by song ID.
func (s *SQLite) LoadRatings(ctx context.Context, playlistID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT song_id, rating FROM ratings WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: load ratings: %v", tournament.ErrGateway, err)
	}
	defer rows.Close()

	ratings := make(map[string]float64)
	for rows.Next() {
		var songID string
		var rating float64
		if err := rows.Scan(&songID, &rating); err != nil {
			return nil, fmt.Errorf("%w: scan rating row: %v", tournament.ErrGateway, err)
		}
		ratings[songID] = rating
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load ratings: %v", tournament.ErrGateway, err)
	}
	return ratings, nil
}

// SavePreviewURL persists a lazily resolved preview URL.
func (s *SQLite) SavePreviewURL(ctx context.Context, playlistID, songID, previewURL string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE songs SET preview_url = ? WHERE playlist_id = ? AND id = ?`,
		previewURL, playlistID, songID); err != nil {
		return fmt.Errorf("%w: save preview for %s: %v", tournament.ErrGateway, songID, err)
	}
	return nil
}

// Reset clears a playlist's tournament rows. The outcome journal always
// survives; ratings survive only with keepRatings.
func (s *SQLite) Reset(ctx context.Context, playlistID string, keepRatings bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin reset: %v", tournament.ErrGateway, err)
	}
	defer tx.Rollback()

	tables := []string{"songs", "song_groups", "matchups", "finalists"}
	if !keepRatings {
		tables = append(tables, "ratings")
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE playlist_id = ?", table), playlistID); err != nil {
			return fmt.Errorf("%w: reset %s: %v", tournament.ErrGateway, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit reset: %v", tournament.ErrGateway, err)
	}
	return nil
}

// OutcomeRecord is one journaled comparison.
type OutcomeRecord struct {
	ID           string    `json:"id"`
	PlaylistID   string    `json:"playlist_id"`
	Scope        string    `json:"scope"`
	PairKey      string    `json:"pair_key"`
	WinnerID     string    `json:"winner_id"`
	LoserID      string    `json:"loser_id"`
	WinnerRating float64   `json:"winner_rating"`
	LoserRating  float64   `json:"loser_rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// Outcomes returns the journaled comparisons for a playlist in the order
// they were recorded.
func (s *SQLite) Outcomes(ctx context.Context, playlistID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, playlist_id, scope, pair_key, winner_id, loser_id, winner_rating, loser_rating, created_at
		 FROM outcomes WHERE playlist_id = ? ORDER BY created_at, id`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: load outcomes: %v", tournament.ErrGateway, err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var rec OutcomeRecord
		if err := rows.Scan(&rec.ID, &rec.PlaylistID, &rec.Scope, &rec.PairKey,
			&rec.WinnerID, &rec.LoserID, &rec.WinnerRating, &rec.LoserRating, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan outcome row: %v", tournament.ErrGateway, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load outcomes: %v", tournament.ErrGateway, err)
	}
	return records, nil
}
