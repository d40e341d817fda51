package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tunebrawl/tunebrawl/pkg/logger"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// DefaultITunesBaseURL is the public iTunes Search API endpoint.
const DefaultITunesBaseURL = "https://itunes.apple.com"

// itunesResult is one song entry in a search response.
type itunesResult struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	PreviewURL string `json:"previewUrl"`
}

// itunesSearchResponse is the response from the search API.
type itunesSearchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

// ITunesClient looks up preview audio through the iTunes Search API. It
// implements tournament.PreviewFinder and backs the preview fallback for
// tracks whose primary source has no preview URL.
type ITunesClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewITunesClient creates a preview finder against the public API.
func NewITunesClient(log logger.Logger) *ITunesClient {
	return &ITunesClient{
		baseURL: DefaultITunesBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// BaseURL returns the configured API base URL.
func (c *ITunesClient) BaseURL() string {
	return c.baseURL
}

// SetBaseURL updates the API base URL.
func (c *ITunesClient) SetBaseURL(url string) {
	c.baseURL = url
}

// FindPreview searches for the track and returns the first result with a
// preview URL whose artist loosely matches. Returns ErrPreviewNotFound when
// nothing usable comes back.
func (c *ITunesClient) FindPreview(ctx context.Context, name, artist string) (string, error) {
	params := url.Values{}
	params.Set("term", strings.TrimSpace(name+" "+artist))
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "5")

	apiURL := fmt.Sprintf("%s/search?%s", strings.TrimSuffix(c.baseURL, "/"), params.Encode())
	c.log.Debug("iTunes search", "url", apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build search request: %v", tournament.ErrGateway, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: iTunes search: %v", tournament.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: iTunes search returned %d", tournament.ErrGateway, resp.StatusCode)
	}

	var search itunesSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return "", fmt.Errorf("%w: decode search response: %v", tournament.ErrGateway, err)
	}

	for _, result := range search.Results {
		if result.PreviewURL == "" {
			continue
		}
		if artist != "" && !artistMatches(result.ArtistName, artist) {
			continue
		}
		return result.PreviewURL, nil
	}
	return "", fmt.Errorf("%w: %s by %s", tournament.ErrPreviewNotFound, name, artist)
}

// artistMatches compares artist names ignoring case, accepting substring hits
// so featured-artist credits still match.
func artistMatches(got, want string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	want = strings.ToLower(strings.TrimSpace(want))
	return got == want || strings.Contains(got, want) || strings.Contains(want, got)
}
