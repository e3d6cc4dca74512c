// Spotify Web API implementation of [Catalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// spotifyMaxSearch is the API's cap on search page size.
	spotifyMaxSearch = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifySearchResponse is the body of GET /search?type=track.
type SpotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// Result converts the track into a [models.CatalogResult].
func (t SpotifyTrack) Result() models.CatalogResult {
	r := models.CatalogResult{
		Catalog:    models.CatalogSpotify,
		ExternalID: t.ID,
		URI:        t.URI,
		Title:      t.Name,
	}
	if len(t.Artists) > 0 {
		r.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		r.ArtworkURL = t.Album.Images[0].URL
	}
	if r.URI == "" && t.ID != "" {
		r.URI = "spotify:track:" + t.ID
	}
	return r
}

// SpotifyService implements [Catalog] for the Spotify Web API.
// Uses [oauth2] for authentication; the refresh token keeps the access token current.
type SpotifyService struct {
	restClient
	config      *oauth2.Config
	token       *oauth2.Token
	credentials map[string]string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, rps float64) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		restClient: restClient{
			service:    "spotify",
			baseURL:    spotifyBaseURL,
			httpClient: http.DefaultClient,
			limiter:    NewLimiter(rps),
			decodeErr:  decodeSpotifyError,
		},
		config:      config,
		credentials: credentials,
	}, nil
}

func decodeSpotifyError(body []byte) string {
	var errResp struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error.Message
}

// Authenticate sets up the OAuth2 client.
//
// Accepts "access_token", "auth_code", or "refresh_token" in credentials, in that order.
// ctx must outlive the service when a refresh token is used, since refreshes run under it.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken}
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if refreshToken := credentials["refresh_token"]; refreshToken != "" {
		s.token = &oauth2.Token{RefreshToken: refreshToken}
		s.httpClient = oauth2.NewClient(ctx, s.config.TokenSource(ctx, s.token))
		return nil
	}

	return fmt.Errorf("%w: missing access_token, auth_code, or refresh_token", shared.ErrMissingCredentials)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig exposes the OAuth2 configuration for the CLI authorization flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (s *SpotifyService) do(ctx context.Context, method, endpoint string, body, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.doRequest(ctx, method, endpoint, body, result)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Search finds tracks matching query, ranked by Spotify.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]models.CatalogResult, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > spotifyMaxSearch {
		limit = spotifyMaxSearch
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(limit))

	var response SpotifySearchResponse
	if err := s.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	results := make([]models.CatalogResult, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		results = append(results, item.Result())
	}
	return results, nil
}

// AddToPlaylist appends the track URI to the end of the playlist.
func (s *SpotifyService) AddToPlaylist(ctx context.Context, playlistID, trackURI string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: empty playlist id", shared.ErrPlaylistNotFound)
	}

	body := struct {
		URIs []string `json:"uris"`
	}{URIs: []string{trackURI}}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.do(ctx, http.MethodPost, endpoint, body, &response)
}
