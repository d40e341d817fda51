package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebrawl/tunebrawl/pkg/elo"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

func newMockStore(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLite{db: db}, mock
}

func TestLoadStateNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM songs").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "artist", "album", "cover_url", "preview_url", "rating"}))

	_, err := s.LoadState(context.Background(), "pl")
	assert.ErrorIs(t, err, tournament.ErrStateNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadState(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM songs").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "artist", "album", "cover_url", "preview_url", "rating"}).
			AddRow("a", "Alpha", "Artist", "Album", "", "", 1016.0).
			AddRow("b", "Beta", "Artist", "Album", "", "", 984.0).
			AddRow("c", "Gamma", "Artist", "Album", "", "", 1000.0))

	mock.ExpectQuery("SELECT (.+) FROM song_groups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"group_idx", "song_id"}).
			AddRow(0, "a").AddRow(0, "b").AddRow(0, "c"))

	mock.ExpectQuery("SELECT (.+) FROM matchups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "pair_key", "completed"}).
			AddRow("group:0", "a|b", true).
			AddRow("group:0", "a|c", false).
			AddRow("group:0", "b|c", false).
			AddRow("finals", "a|b", false))

	mock.ExpectQuery("SELECT (.+) FROM finalists").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"song_id"}).
			AddRow("a").AddRow("b"))

	state, err := s.LoadState(context.Background(), "pl")
	require.NoError(t, err)

	assert.Equal(t, "pl", state.PlaylistID)
	require.Len(t, state.Songs, 3)
	assert.Equal(t, 1016.0, state.Songs[0].Rating)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, state.Groups)
	assert.Equal(t, map[string]bool{"a|b": true, "a|c": false, "b|c": false}, state.Matchups[0])
	assert.Equal(t, map[string]bool{"a|b": false}, state.FinalsMatchups)
	assert.Equal(t, []string{"a", "b"}, state.Finalists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadStateSingletonGroupGetsEmptyMap(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM songs").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "artist", "album", "cover_url", "preview_url", "rating"}).
			AddRow("a", "Alpha", "", "", "", "", 1000.0).
			AddRow("b", "Beta", "", "", "", "", 1000.0))

	mock.ExpectQuery("SELECT (.+) FROM song_groups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"group_idx", "song_id"}).
			AddRow(0, "a").AddRow(1, "b"))

	mock.ExpectQuery("SELECT (.+) FROM matchups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "pair_key", "completed"}))

	mock.ExpectQuery("SELECT (.+) FROM finalists").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"song_id"}))

	state, err := s.LoadState(context.Background(), "pl")
	require.NoError(t, err)

	require.Contains(t, state.Matchups, 0)
	require.Contains(t, state.Matchups, 1)
	assert.Empty(t, state.Matchups[1])
	assert.Nil(t, state.FinalsMatchups, "no finals rows means finals not started")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadStateNullSongColumns(t *testing.T) {
	// Rows imported without metadata leave artist, album and the URL columns
	// NULL; they load as empty strings rather than failing the scan.
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM songs").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "artist", "album", "cover_url", "preview_url", "rating"}).
			AddRow("a", "Alpha", nil, nil, nil, nil, 1000.0).
			AddRow("b", "Beta", "Artist", nil, "https://img.example/b.jpg", nil, 1000.0))

	mock.ExpectQuery("SELECT (.+) FROM song_groups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"group_idx", "song_id"}).
			AddRow(0, "a").AddRow(0, "b"))

	mock.ExpectQuery("SELECT (.+) FROM matchups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "pair_key", "completed"}).
			AddRow("group:0", "a|b", false))

	mock.ExpectQuery("SELECT (.+) FROM finalists").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"song_id"}))

	state, err := s.LoadState(context.Background(), "pl")
	require.NoError(t, err)
	require.Len(t, state.Songs, 2)
	assert.Equal(t, "", state.Songs[0].Artist)
	assert.Equal(t, "", state.Songs[0].Album)
	assert.Equal(t, "", state.Songs[0].AlbumCoverURL)
	assert.Equal(t, "", state.Songs[0].PreviewURL)
	assert.Equal(t, "Artist", state.Songs[1].Artist)
	assert.Equal(t, "https://img.example/b.jpg", state.Songs[1].AlbumCoverURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadStateCorruptRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM songs").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "artist", "album", "cover_url", "preview_url", "rating"}).
			AddRow("a", "Alpha", "", "", "", "", 1000.0).
			AddRow("b", "Beta", "", "", "", "", 1000.0))

	mock.ExpectQuery("SELECT (.+) FROM song_groups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"group_idx", "song_id"}).
			AddRow(0, "a").AddRow(0, "b"))

	mock.ExpectQuery("SELECT (.+) FROM matchups").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "pair_key", "completed"}).
			AddRow("group:0", "a|ghost", false)) // pair references a song not on record

	mock.ExpectQuery("SELECT (.+) FROM finalists").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"song_id"}))

	_, err := s.LoadState(context.Background(), "pl")
	assert.ErrorIs(t, err, tournament.ErrGateway)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshot(t *testing.T) {
	s, mock := newMockStore(t)

	state := &tournament.State{
		PlaylistID: "pl",
		Songs: []tournament.Song{
			{ID: "a", Name: "Alpha", Rating: 1000},
			{ID: "b", Name: "Beta", Rating: 1000},
		},
		Groups:   [][]string{{"a", "b"}},
		Matchups: map[int]map[string]bool{0: {"a|b": false}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM songs").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM song_groups").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM matchups").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM finalists").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO songs").
		WithArgs("pl", "a", 0, "Alpha", "", "", "", "", 1000.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO songs").
		WithArgs("pl", "b", 1, "Beta", "", "", "", "", 1000.0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO song_groups").
		WithArgs("pl", 0, 0, "a").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO song_groups").
		WithArgs("pl", 0, 1, "b").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO matchups").
		WithArgs("pl", "group:0", "a|b", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveSnapshot(context.Background(), state))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordResult(t *testing.T) {
	s, mock := newMockStore(t)

	winner := elo.Update{SongID: "a", OldRating: 1000, NewRating: 1016, Delta: 16}
	loser := elo.Update{SongID: "b", OldRating: 1000, NewRating: 984, Delta: -16}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE songs SET rating").
		WithArgs(1016.0, "pl", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ratings").
		WithArgs("pl", "a", 1016.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE songs SET rating").
		WithArgs(984.0, "pl", "b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ratings").
		WithArgs("pl", "b", 984.0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE matchups SET completed").
		WithArgs("pl", "group:0", "a|b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outcomes").
		WithArgs(sqlmock.AnyArg(), "pl", "group:0", "a|b", "a", "b", 1016.0, 984.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.RecordResult(context.Background(), "pl", tournament.GroupScope(0), "a|b", winner, loser)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordResultUnknownMatchup(t *testing.T) {
	s, mock := newMockStore(t)

	winner := elo.Update{SongID: "a", NewRating: 1016}
	loser := elo.Update{SongID: "b", NewRating: 984}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE songs SET rating").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ratings").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE songs SET rating").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ratings").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE matchups SET completed").
		WillReturnResult(sqlmock.NewResult(0, 0)) // no such pair
	mock.ExpectRollback()

	err := s.RecordResult(context.Background(), "pl", tournament.GroupScope(0), "a|b", winner, loser)
	assert.ErrorIs(t, err, tournament.ErrGateway)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFinalists(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM finalists").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO finalists").WithArgs("pl", 0, "a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO finalists").WithArgs("pl", 1, "b").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveFinalists(context.Background(), "pl", []string{"a", "b"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRatings(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM ratings").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{"song_id", "rating"}).
			AddRow("a", 1016.0).AddRow("b", 984.0))

	ratings, err := s.LoadRatings(context.Background(), "pl")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1016, "b": 984}, ratings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePreviewURL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE songs SET preview_url").
		WithArgs("https://cdn.example/a.m4a", "pl", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SavePreviewURL(context.Background(), "pl", "a", "https://cdn.example/a.m4a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReset(t *testing.T) {
	t.Run("ClearsRatings", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM songs").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("DELETE FROM song_groups").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM matchups").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM finalists").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM ratings").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, s.Reset(context.Background(), "pl", false))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("KeepRatings", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM songs").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("DELETE FROM song_groups").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM matchups").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM finalists").WithArgs("pl").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, s.Reset(context.Background(), "pl", true))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutcomes(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM outcomes").
		WithArgs("pl").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "playlist_id", "scope", "pair_key", "winner_id", "loser_id",
			"winner_rating", "loser_rating", "created_at"}).
			AddRow("uuid-1", "pl", "group:0", "a|b", "a", "b", 1016.0, 984.0, now))

	records, err := s.Outcomes(context.Background(), "pl")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].WinnerID)
	assert.Equal(t, 984.0, records[0].LoserRating)
	assert.Equal(t, now, records[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
