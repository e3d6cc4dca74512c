// package models defines the data model for the song nomination bot
package models

import (
	"fmt"
	"time"
)

// Catalog identifies one of the two external media services.
type Catalog int

const (
	// CatalogYouTube is catalog A: searchable, listable, insertable.
	CatalogYouTube Catalog = iota
	// CatalogSpotify is catalog B: searchable and insertable.
	CatalogSpotify
)

// Code returns the short tag used in callback data.
func (c Catalog) Code() string {
	switch c {
	case CatalogYouTube:
		return "YT"
	case CatalogSpotify:
		return "SP"
	default:
		return ""
	}
}

func (c Catalog) String() string {
	switch c {
	case CatalogYouTube:
		return "YouTube"
	case CatalogSpotify:
		return "Spotify"
	default:
		return "unknown"
	}
}

// ParseCatalog converts a callback code back into a [Catalog].
func ParseCatalog(code string) (Catalog, error) {
	switch code {
	case "YT":
		return CatalogYouTube, nil
	case "SP":
		return CatalogSpotify, nil
	default:
		return 0, fmt.Errorf("unknown catalog code %q", code)
	}
}

// CatalogResult is a single search hit normalized across catalogs.
type CatalogResult struct {
	Catalog    Catalog
	ExternalID string // YouTube video id or Spotify track id
	URI        string // Spotify track URI, empty for YouTube
	Title      string
	Artist     string // optional; YouTube results usually have none
	ArtworkURL string // optional cover or thumbnail
}

// Label renders "Artist - Title", or just the title when the artist is unknown.
func (r CatalogResult) Label() string {
	if r.Artist == "" {
		return r.Title
	}
	return r.Artist + " - " + r.Title
}

// Link returns the public URL of the track on its catalog.
func (r CatalogResult) Link() string {
	switch r.Catalog {
	case CatalogYouTube:
		return "https://youtu.be/" + r.ExternalID
	case CatalogSpotify:
		return "https://open.spotify.com/track/" + r.ExternalID
	default:
		return ""
	}
}

// PendingRequest holds both result sets of a search until the user picks one.
type PendingRequest struct {
	Token     string
	ChatID    int64
	Query     string
	YouTube   []CatalogResult
	Spotify   []CatalogResult
	CreatedAt time.Time
}

// Results returns the ordered result set for catalog c.
func (p PendingRequest) Results(c Catalog) []CatalogResult {
	if c == CatalogSpotify {
		return p.Spotify
	}
	return p.YouTube
}

// Poll is one active vote on a nominated track.
//
// RequiredVotes is fixed when the poll is opened.
type Poll struct {
	ID            string
	ChatID        int64
	MessageID     int64
	ProposerID    int64
	ProposerName  string
	Title         string
	YouTube       *CatalogResult
	Spotify       *CatalogResult
	YesVotes      int
	NoVotes       int
	RequiredVotes int
	CreatedAt     time.Time
}

// Reputation deltas applied per poll outcome.
const (
	WinPoints  = 10
	LossPoints = -2
)

// ScoreRecord is a nominator's row in the ledger.
type ScoreRecord struct {
	UserID        int64
	DisplayName   string
	Reputation    int
	AcceptedCount int
	RejectedCount int
	UpdatedAt     time.Time
}

// WinRate is accepted / (accepted + rejected) as a whole percentage.
func (s ScoreRecord) WinRate() int {
	total := s.AcceptedCount + s.RejectedCount
	if total == 0 {
		return 0
	}
	return (s.AcceptedCount*100 + total/2) / total
}

// CommitStatus is the typed result of inserting a track into one playlist.
type CommitStatus string

const (
	StatusAdded     CommitStatus = "added"
	StatusDuplicate CommitStatus = "duplicate"
	StatusFailed    CommitStatus = "failed"
	StatusSkipped   CommitStatus = "skipped"
)

// CommitReport holds the per-catalog commit results.
type CommitReport struct {
	YouTube      CommitStatus
	Spotify      CommitStatus
	YouTubeError error
	SpotifyError error
}

// Resolution is the single recorded outcome of a poll.
type Resolution struct {
	PollID        string
	ChatID        int64
	ProposerID    int64
	ProposerName  string
	Title         string
	YouTubeID     string
	SpotifyURI    string
	YesVotes      int
	NoVotes       int
	RequiredVotes int
	Won           bool
	Report        CommitReport
}

// Nomination is a resolved poll as stored in the ledger history.
type Nomination struct {
	ID            string
	PollID        string
	ChatID        int64
	ProposerID    int64
	ProposerName  string
	Title         string
	YouTubeID     string
	SpotifyURI    string
	YesVotes      int
	NoVotes       int
	RequiredVotes int
	Won           bool
	YouTubeStatus CommitStatus
	SpotifyStatus CommitStatus
	ResolvedAt    time.Time
}
