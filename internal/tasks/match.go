package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
)

// annotationPattern matches the shortest "(...)" or "[...]" run, e.g. "(Official Video)".
var annotationPattern = regexp.MustCompile(`(\(|\[).*?(\)|\])`)

// CleanTitle drops parenthesized and bracketed annotations from a video title.
func CleanTitle(title string) string {
	cleaned := annotationPattern.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// Selection is a user's pick plus its counterpart on the other catalog.
type Selection struct {
	Source  models.Catalog
	Title   string
	YouTube *models.CatalogResult
	Spotify *models.CatalogResult
}

// CoverURL prefers Spotify album art, then the YouTube thumbnail.
func (s Selection) CoverURL() string {
	if s.Spotify != nil && s.Spotify.ArtworkURL != "" {
		return s.Spotify.ArtworkURL
	}
	if s.YouTube != nil {
		if s.YouTube.ArtworkURL != "" {
			return s.YouTube.ArtworkURL
		}
		if s.YouTube.ExternalID != "" {
			return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", s.YouTube.ExternalID)
		}
	}
	return ""
}

// Matcher finds the same track on the other catalog.
type Matcher struct {
	youtube services.Searcher
	spotify services.Searcher
	timeout time.Duration
	logger  *log.Logger
}

// NewMatcher creates a matcher over the two searchers.
func NewMatcher(youtube, spotify services.Searcher, timeout time.Duration, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Matcher{
		youtube: youtube,
		spotify: spotify,
		timeout: timeout,
		logger:  shared.WithLogger(logger, "component", "match"),
	}
}

// FromSpotify searches YouTube for "artist title" and returns the first hit, or nil.
func (m *Matcher) FromSpotify(ctx context.Context, track models.CatalogResult) *models.CatalogResult {
	query := strings.TrimSpace(track.Artist + " " + track.Title)
	return m.first(ctx, m.youtube, query)
}

// FromYouTube searches Spotify for the cleaned video title and returns the first hit, or nil.
func (m *Matcher) FromYouTube(ctx context.Context, video models.CatalogResult) *models.CatalogResult {
	return m.first(ctx, m.spotify, CleanTitle(video.Title))
}

func (m *Matcher) first(ctx context.Context, s services.Searcher, query string) *models.CatalogResult {
	if s == nil || query == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results, err := s.Search(ctx, query, 1)
	if err != nil {
		m.logger.Warn("counterpart search failed", "service", s.Name(), "query", query, "error", err)
		return nil
	}
	if len(results) == 0 {
		m.logger.Info("no counterpart found", "service", s.Name(), "query", query)
		return nil
	}
	hit := results[0]
	return &hit
}

// Resolve picks result index of catalog c from req and matches it on the other catalog.
//
// An index outside the stored results returns [shared.ErrStaleRequest].
func (m *Matcher) Resolve(ctx context.Context, req models.PendingRequest, c models.Catalog, index int) (Selection, error) {
	results := req.Results(c)
	if index < 0 || index >= len(results) {
		return Selection{}, fmt.Errorf("%w: no %s result at index %d", shared.ErrStaleRequest, c, index)
	}

	picked := results[index]
	sel := Selection{Source: c}
	switch c {
	case models.CatalogSpotify:
		sel.Spotify = &picked
		sel.Title = picked.Label()
		sel.YouTube = m.FromSpotify(ctx, picked)
	default:
		sel.YouTube = &picked
		sel.Title = picked.Title
		sel.Spotify = m.FromYouTube(ctx, picked)
	}
	return sel, nil
}
