// package services defines the clients for the remote APIs the bot talks to
//
// Spotify, YouTube Data API, Telegram Bot API
package services

import (
	"context"

	"github.com/desertthunder/songvote/internal/models"
	"golang.org/x/oauth2"
)

// Searcher is a catalog that can look tracks up by free text.
type Searcher interface {
	// Search returns up to limit results in the catalog's own relevance order.
	Search(ctx context.Context, query string, limit int) ([]models.CatalogResult, error)

	// Name returns the name of the service (e.g., "Spotify", "YouTube")
	Name() string
}

// PlaylistInserter appends a track to a playlist.
type PlaylistInserter interface {
	// AddToPlaylist inserts trackRef (video id or track URI) into playlistID.
	AddToPlaylist(ctx context.Context, playlistID, trackRef string) error
}

// PlaylistLister pages through a playlist's members.
type PlaylistLister interface {
	// PlaylistPage returns one page of members; an empty NextPageToken ends iteration.
	PlaylistPage(ctx context.Context, playlistID, pageToken string) (*PlaylistPage, error)
}

// Catalog is the full surface the pipeline needs from one music service.
type Catalog interface {
	Searcher
	PlaylistInserter
}

// PlaylistPage is one page of playlist members.
type PlaylistPage struct {
	TrackIDs      []string
	NextPageToken string
}

// OAuthService is implemented by catalogs that authenticate with the authorization code flow.
type OAuthService interface {
	Name() string
	OAuthConfig() *oauth2.Config
	GetAuthURL(state string) string
	Authenticate(ctx context.Context, credentials map[string]string) error
}
