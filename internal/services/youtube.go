// YouTube Data API v3 implementation of [Catalog] and [PlaylistLister]
//
// Reference: https://developers.google.com/youtube/v3/docs
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL    = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"

	// YouTubePageSize is the playlistItems.list maximum.
	YouTubePageSize = 50
)

// YouTubeThumbnail represents one thumbnail size.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type youtubeThumbnails struct {
	Default YouTubeThumbnail `json:"default"`
	Medium  YouTubeThumbnail `json:"medium"`
	High    YouTubeThumbnail `json:"high"`
}

func (t youtubeThumbnails) best() string {
	for _, th := range []YouTubeThumbnail{t.High, t.Medium, t.Default} {
		if th.URL != "" {
			return th.URL
		}
	}
	return ""
}

// YouTubeSearchItem is one entry of search.list.
type YouTubeSearchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string            `json:"title"`
		ChannelTitle string            `json:"channelTitle"`
		Thumbnails   youtubeThumbnails `json:"thumbnails"`
	} `json:"snippet"`
}

// Result converts the search item into a [models.CatalogResult].
//
// Titles arrive HTML-escaped from the API.
func (i YouTubeSearchItem) Result() models.CatalogResult {
	artwork := i.Snippet.Thumbnails.best()
	if artwork == "" && i.ID.VideoID != "" {
		artwork = fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", i.ID.VideoID)
	}
	return models.CatalogResult{
		Catalog:    models.CatalogYouTube,
		ExternalID: i.ID.VideoID,
		Title:      html.UnescapeString(i.Snippet.Title),
		ArtworkURL: artwork,
	}
}

// YouTubePlaylistItem is one entry of playlistItems.list.
type YouTubePlaylistItem struct {
	ID      string `json:"id"`
	Snippet struct {
		PlaylistID string `json:"playlistId"`
		Title      string `json:"title"`
		ResourceID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// YouTubeService implements [Catalog] and [PlaylistLister] for the YouTube Data API.
type YouTubeService struct {
	restClient
	config *oauth2.Config
	token  *oauth2.Token
}

// NewYouTubeService creates a new YouTube service with the given OAuth2 credentials.
func NewYouTubeService(credentials map[string]string, rps float64) (*YouTubeService, error) {
	clientID := credentials["client_id"]
	clientSecret := credentials["client_secret"]
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_id or client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	return &YouTubeService{
		restClient: restClient{
			service:    "youtube",
			baseURL:    defaultYTBaseURL,
			httpClient: http.DefaultClient,
			limiter:    NewLimiter(rps),
			decodeErr:  decodeGoogleError,
		},
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
		},
	}, nil
}

func decodeGoogleError(body []byte) string {
	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error.Message
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// OAuthConfig exposes the OAuth2 configuration for the CLI authorization flow.
func (y *YouTubeService) OAuthConfig() *oauth2.Config {
	return y.config
}

// GetAuthURL returns the consent URL. prompt=consent forces Google to issue a refresh token.
func (y *YouTubeService) GetAuthURL(state string) string {
	return y.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Authenticate sets up the OAuth2 client from "access_token", "auth_code", or "refresh_token".
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	switch {
	case credentials["access_token"] != "":
		y.token = &oauth2.Token{AccessToken: credentials["access_token"]}
	case credentials["auth_code"] != "":
		token, err := y.config.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		y.token = token
	case credentials["refresh_token"] != "":
		y.token = &oauth2.Token{RefreshToken: credentials["refresh_token"]}
	default:
		return fmt.Errorf("%w: missing access_token, auth_code, or refresh_token", shared.ErrMissingCredentials)
	}

	y.httpClient = oauth2.NewClient(ctx, y.config.TokenSource(ctx, y.token))
	return nil
}

func (y *YouTubeService) do(ctx context.Context, method, endpoint string, body, result any) error {
	if y.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return y.doRequest(ctx, method, endpoint, body, result)
}

// ChannelTitle returns the title of the authenticated user's channel.
func (y *YouTubeService) ChannelTitle(ctx context.Context) (string, error) {
	var response struct {
		Items []struct {
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := y.do(ctx, http.MethodGet, "/channels?part=snippet&mine=true", nil, &response); err != nil {
		return "", err
	}
	if len(response.Items) == 0 {
		return "", fmt.Errorf("%w: no channel for this account", shared.ErrNotAuthenticated)
	}
	return response.Items[0].Snippet.Title, nil
}

// Search finds videos matching query, ranked by YouTube.
//
// Calls GET /search?part=snippet&type=video.
func (y *YouTubeService) Search(ctx context.Context, query string, limit int) ([]models.CatalogResult, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > YouTubePageSize {
		limit = YouTubePageSize
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprint(limit))

	var response struct {
		Items []YouTubeSearchItem `json:"items"`
	}
	if err := y.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	results := make([]models.CatalogResult, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, item.Result())
	}
	return results, nil
}

// PlaylistPage returns one page of video ids from the playlist.
//
// Calls GET /playlistItems?part=snippet&maxResults=50.
func (y *YouTubeService) PlaylistPage(ctx context.Context, playlistID, pageToken string) (*PlaylistPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", fmt.Sprint(YouTubePageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var response struct {
		Items         []YouTubePlaylistItem `json:"items"`
		NextPageToken string                `json:"nextPageToken"`
	}
	if err := y.do(ctx, http.MethodGet, "/playlistItems?"+params.Encode(), nil, &response); err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}

	page := &PlaylistPage{
		TrackIDs:      make([]string, 0, len(response.Items)),
		NextPageToken: response.NextPageToken,
	}
	for _, item := range response.Items {
		page.TrackIDs = append(page.TrackIDs, item.Snippet.ResourceID.VideoID)
	}
	return page, nil
}

// AddToPlaylist appends the video to the playlist.
//
// Calls POST /playlistItems?part=snippet.
func (y *YouTubeService) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: empty playlist id", shared.ErrPlaylistNotFound)
	}

	var body struct {
		Snippet struct {
			PlaylistID string `json:"playlistId"`
			ResourceID struct {
				Kind    string `json:"kind"`
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	}
	body.Snippet.PlaylistID = playlistID
	body.Snippet.ResourceID.Kind = "youtube#video"
	body.Snippet.ResourceID.VideoID = videoID

	return y.do(ctx, http.MethodPost, "/playlistItems?part=snippet", body, nil)
}
