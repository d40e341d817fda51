// Package source supplies track collections and preview audio to the
// tournament: the Spotify Web API for playlists, local CSV files as an
// offline alternative, and the iTunes Search API as a preview fallback.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tunebrawl/tunebrawl/pkg/config"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// SpotifyClient fetches playlist tracks through the Spotify Web API using
// the client-credentials flow. It implements tournament.TrackSource.
type SpotifyClient struct {
	client   *spotify.Client
	market   string
	pageSize int
}

// NewSpotifyClient authenticates with the client-credentials flow and returns
// a track source. Both credentials must be configured.
func NewSpotifyClient(ctx context.Context, cfg config.SpotifyConfig) (*SpotifyClient, error) {
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: Spotify credentials not configured", tournament.ErrGateway)
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: Spotify token: %v", tournament.ErrGateway, err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &SpotifyClient{
		client:   spotify.New(httpClient),
		market:   cfg.Market,
		pageSize: cfg.PageSize,
	}, nil
}

// FetchTracks returns all playable tracks of a playlist in playlist order.
// Episodes and local files without a track ID are skipped.
func (c *SpotifyClient) FetchTracks(ctx context.Context, playlistID string) ([]tournament.Song, error) {
	page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
		spotify.Limit(c.pageSize), spotify.Market(c.market))
	if err != nil {
		return nil, fmt.Errorf("%w: playlist %s: %v", tournament.ErrGateway, playlistID, err)
	}

	var songs []tournament.Song
	for {
		for _, item := range page.Items {
			track := item.Track.Track
			if track == nil || track.ID == "" {
				continue
			}
			songs = append(songs, songFromTrack(track))
		}

		err = c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: playlist %s page: %v", tournament.ErrGateway, playlistID, err)
		}
	}
	return songs, nil
}

// songFromTrack maps one Spotify track onto the tournament model: first
// artist, album name, largest cover image and the preview URL when present.
func songFromTrack(track *spotify.FullTrack) tournament.Song {
	song := tournament.Song{
		ID:         string(track.ID),
		Name:       track.Name,
		Album:      track.Album.Name,
		PreviewURL: track.PreviewURL,
	}
	if len(track.Artists) > 0 {
		song.Artist = track.Artists[0].Name
	}
	song.AlbumCoverURL = largestImage(track.Album.Images)
	return song
}

func largestImage(images []spotify.Image) string {
	best := ""
	bestArea := int64(-1)
	for _, img := range images {
		area := int64(img.Width) * int64(img.Height)
		if area > bestArea {
			bestArea = area
			best = img.URL
		}
	}
	return best
}
