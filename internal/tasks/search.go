package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultSearchLimit is the number of hits requested from each catalog.
const DefaultSearchLimit = 5

// SearchResult holds both catalogs' hits for one query, each in catalog order.
type SearchResult struct {
	Query   string
	YouTube []models.CatalogResult
	Spotify []models.CatalogResult
}

// Empty reports whether neither catalog found anything.
func (r SearchResult) Empty() bool {
	return len(r.YouTube) == 0 && len(r.Spotify) == 0
}

// Aggregator fans a query out to both catalogs.
type Aggregator struct {
	youtube services.Searcher
	spotify services.Searcher
	timeout time.Duration
	logger  *log.Logger
}

// NewAggregator creates an aggregator. Either searcher may be nil, in which case that side is always empty.
func NewAggregator(youtube, spotify services.Searcher, timeout time.Duration, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		youtube: youtube,
		spotify: spotify,
		timeout: timeout,
		logger:  shared.WithLogger(logger, "component", "search"),
	}
}

// Search queries both catalogs concurrently and waits for both.
//
// A failure or timeout on one side is logged and yields an empty list for that side.
func (a *Aggregator) Search(ctx context.Context, query string, limit int) SearchResult {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	result := SearchResult{Query: query}

	var g errgroup.Group
	g.Go(func() error {
		result.YouTube = a.searchOne(ctx, a.youtube, query, limit)
		return nil
	})
	g.Go(func() error {
		result.Spotify = a.searchOne(ctx, a.spotify, query, limit)
		return nil
	})
	_ = g.Wait()

	return result
}

func (a *Aggregator) searchOne(ctx context.Context, s services.Searcher, query string, limit int) []models.CatalogResult {
	if s == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	results, err := s.Search(ctx, query, limit)
	if err != nil {
		a.logger.Warn("catalog search failed", "service", s.Name(), "query", query, "error", err)
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	a.logger.Debug("catalog search", "service", s.Name(), "hits", len(results), "elapsed", time.Since(start))
	return results
}
