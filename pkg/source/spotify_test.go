package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestSongFromTrack(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:   "4uLU6hMCjMI75M1A2tKUQC",
			Name: "Never Gonna Give You Up",
			Artists: []spotify.SimpleArtist{
				{Name: "Rick Astley"},
				{Name: "Someone Else"},
			},
			PreviewURL: "https://p.scdn.co/preview.mp3",
		},
		Album: spotify.SimpleAlbum{
			Name: "Whenever You Need Somebody",
			Images: []spotify.Image{
				{URL: "https://i.scdn.co/64", Width: 64, Height: 64},
				{URL: "https://i.scdn.co/640", Width: 640, Height: 640},
				{URL: "https://i.scdn.co/300", Width: 300, Height: 300},
			},
		},
	}

	song := songFromTrack(track)

	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", song.ID)
	assert.Equal(t, "Never Gonna Give You Up", song.Name)
	assert.Equal(t, "Rick Astley", song.Artist, "first artist wins")
	assert.Equal(t, "Whenever You Need Somebody", song.Album)
	assert.Equal(t, "https://i.scdn.co/640", song.AlbumCoverURL, "largest cover wins")
	assert.Equal(t, "https://p.scdn.co/preview.mp3", song.PreviewURL)
}

func TestSongFromTrackSparse(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{ID: "abc", Name: "Untitled"},
	}

	song := songFromTrack(track)
	assert.Equal(t, "abc", song.ID)
	assert.Empty(t, song.Artist)
	assert.Empty(t, song.AlbumCoverURL)
}

func TestLargestImage(t *testing.T) {
	assert.Empty(t, largestImage(nil))
	assert.Equal(t, "b", largestImage([]spotify.Image{
		{URL: "a", Width: 10, Height: 10},
		{URL: "b", Width: 20, Height: 20},
	}))
}
