package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

func TestCSVParse(t *testing.T) {
	input := `id,name,artist,album,preview_url
t1,Paranoid Android,Radiohead,OK Computer,https://cdn.example/1.m4a
t2,Karma Police,Radiohead,OK Computer,
t3,Everything In Its Right Place,Radiohead,Kid A,
`
	songs, err := NewCSVSource().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, songs, 3)

	assert.Equal(t, "t1", songs[0].ID)
	assert.Equal(t, "Paranoid Android", songs[0].Name)
	assert.Equal(t, "Radiohead", songs[0].Artist)
	assert.Equal(t, "OK Computer", songs[0].Album)
	assert.Equal(t, "https://cdn.example/1.m4a", songs[0].PreviewURL)
	assert.Empty(t, songs[1].PreviewURL)
}

func TestCSVParseHeaderOrderIndependent(t *testing.T) {
	input := `artist,id,name
Radiohead,t1,Airbag
`
	songs, err := NewCSVSource().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "t1", songs[0].ID)
	assert.Equal(t, "Airbag", songs[0].Name)
	assert.Equal(t, "Radiohead", songs[0].Artist)
}

func TestCSVParseNoHeader(t *testing.T) {
	src := NewCSVSource()
	src.HasHeader = false
	src.Columns = CSVColumns{ID: "0", Name: "1", Artist: "2"}

	songs, err := src.Parse(strings.NewReader("t1,Airbag,Radiohead\nt2,Lucky,Radiohead\n"))
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "Lucky", songs[1].Name)
}

func TestCSVParseErrors(t *testing.T) {
	t.Run("MissingRequiredColumn", func(t *testing.T) {
		_, err := NewCSVSource().Parse(strings.NewReader("id,artist\nt1,Radiohead\n"))
		assert.ErrorIs(t, err, ErrCSVParsing)
	})

	t.Run("EmptyID", func(t *testing.T) {
		_, err := NewCSVSource().Parse(strings.NewReader("id,name\n,Airbag\n"))
		assert.ErrorIs(t, err, ErrCSVParsing)
	})

	t.Run("SeparatorInID", func(t *testing.T) {
		_, err := NewCSVSource().Parse(strings.NewReader("id,name\n\"a|b\",Airbag\n"))
		assert.ErrorIs(t, err, ErrCSVParsing)
	})
}

func TestCSVFetchTracks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\nt1,Airbag\nt2,Lucky\n"), 0644))

	songs, err := NewCSVSource().FetchTracks(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, songs, 2)

	_, err = NewCSVSource().FetchTracks(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, tournament.ErrGateway)
}

func TestCSVCustomDelimiter(t *testing.T) {
	src := NewCSVSource()
	src.Delimiter = ';'

	songs, err := src.Parse(strings.NewReader("id;name\nt1;Airbag\n"))
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Airbag", songs[0].Name)
}
