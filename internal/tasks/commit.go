package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
	"golang.org/x/sync/errgroup"
)

// YouTubePlaylist is the YouTube surface the committer needs: listing for the duplicate scan and insert.
type YouTubePlaylist interface {
	services.PlaylistLister
	services.PlaylistInserter
}

// Committer inserts approved tracks into the two shared playlists.
type Committer struct {
	youtube         YouTubePlaylist
	spotify         services.PlaylistInserter
	youtubePlaylist string
	spotifyPlaylist string
	timeout         time.Duration
	logger          *log.Logger
}

// NewCommitter creates a committer. A nil client or empty playlist id makes that side skip.
//
// Each side gets timeout to finish, scan included; zero means 10s.
func NewCommitter(youtube YouTubePlaylist, youtubePlaylist string, spotify services.PlaylistInserter, spotifyPlaylist string, timeout time.Duration, logger *log.Logger) *Committer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Committer{
		youtube:         youtube,
		spotify:         spotify,
		youtubePlaylist: youtubePlaylist,
		spotifyPlaylist: spotifyPlaylist,
		timeout:         timeout,
		logger:          shared.WithLogger(logger, "component", "commit"),
	}
}

// Commit adds videoID and trackURI to their playlists. Empty references are skipped.
func (c *Committer) Commit(ctx context.Context, videoID, trackURI string) models.CommitReport {
	return c.CommitWithProgress(ctx, videoID, trackURI, nil)
}

// CommitWithProgress is [Committer.Commit] with progress reporting.
//
// Both sides run concurrently and neither outcome affects the other.
func (c *Committer) CommitWithProgress(ctx context.Context, videoID, trackURI string, progress chan<- ProgressUpdate) models.CommitReport {
	var report models.CommitReport

	var g errgroup.Group
	g.Go(func() error {
		report.YouTube, report.YouTubeError = c.commitYouTube(ctx, videoID, progress)
		return nil
	})
	g.Go(func() error {
		report.Spotify, report.SpotifyError = c.commitSpotify(ctx, trackURI, progress)
		return nil
	})
	_ = g.Wait()

	c.logger.Info("commit finished",
		"video_id", videoID, "youtube", report.YouTube,
		"track_uri", trackURI, "spotify", report.Spotify)
	sendProgress(progress, commitDoneUpdate(report))
	return report
}

func (c *Committer) commitYouTube(ctx context.Context, videoID string, progress chan<- ProgressUpdate) (models.CommitStatus, error) {
	if videoID == "" {
		return models.StatusSkipped, nil
	}
	if c.youtube == nil || c.youtubePlaylist == "" {
		return models.StatusSkipped, fmt.Errorf("%w: youtube playlist not configured", shared.ErrMissingConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	found, err := c.PlaylistContains(ctx, videoID, progress)
	if err != nil {
		err = deadlineError(ctx, err)
		c.logger.Warn("youtube duplicate scan failed", "video_id", videoID, "error", err)
		return models.StatusFailed, err
	}
	if found {
		return models.StatusDuplicate, nil
	}

	sendProgress(progress, insertUpdate(InsertYouTube, videoID))
	if err := c.youtube.AddToPlaylist(ctx, c.youtubePlaylist, videoID); err != nil {
		err = deadlineError(ctx, err)
		c.logger.Warn("youtube insert failed", "video_id", videoID, "error", err)
		return models.StatusFailed, err
	}
	return models.StatusAdded, nil
}

func (c *Committer) commitSpotify(ctx context.Context, trackURI string, progress chan<- ProgressUpdate) (models.CommitStatus, error) {
	if trackURI == "" {
		return models.StatusSkipped, nil
	}
	if c.spotify == nil || c.spotifyPlaylist == "" {
		return models.StatusSkipped, fmt.Errorf("%w: spotify playlist not configured", shared.ErrMissingConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sendProgress(progress, insertUpdate(InsertSpotify, trackURI))
	if err := c.spotify.AddToPlaylist(ctx, c.spotifyPlaylist, trackURI); err != nil {
		err = deadlineError(ctx, err)
		c.logger.Warn("spotify insert failed", "track_uri", trackURI, "error", err)
		return models.StatusFailed, err
	}
	return models.StatusAdded, nil
}

// deadlineError marks err as a timeout when ctx ran out before the call returned.
func deadlineError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, shared.ErrTimeout) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return err
}

// PlaylistContains scans the YouTube playlist page by page, stopping at the first match or the last page.
func (c *Committer) PlaylistContains(ctx context.Context, videoID string, progress chan<- ProgressUpdate) (bool, error) {
	if c.youtube == nil || c.youtubePlaylist == "" {
		return false, fmt.Errorf("%w: youtube playlist not configured", shared.ErrMissingConfig)
	}

	pageToken := ""
	seen := map[string]bool{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}

		result, err := c.youtube.PlaylistPage(ctx, c.youtubePlaylist, pageToken)
		if err != nil {
			return false, err
		}
		sendProgress(progress, scanPageUpdate(page, len(result.TrackIDs)))

		if slices.Contains(result.TrackIDs, videoID) {
			return true, nil
		}
		if result.NextPageToken == "" || seen[result.NextPageToken] {
			return false, nil
		}
		seen[result.NextPageToken] = true
		pageToken = result.NextPageToken
	}
}
