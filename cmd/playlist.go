package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
	"github.com/desertthunder/songvote/internal/tasks"
	"github.com/desertthunder/songvote/internal/ui"
	"github.com/urfave/cli/v3"
)

// printProgress writes updates until progress is closed, then closes done.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		if update.Phase == tasks.CommitDone {
			continue
		}
		r.writePlain("%s\n", ui.Muted("→ "+update.Message))
	}
}

func (r *Runner) committer(ctx context.Context) (*tasks.Committer, error) {
	cats, err := r.connectCatalogs(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewCommitter(
		cats.youtubeLists, r.config.Credentials.YouTube.PlaylistID,
		cats.spotifyLists, r.config.Credentials.Spotify.PlaylistID,
		r.config.Bot.RequestTimeout(), r.logger,
	), nil
}

// PlaylistAdd commits a track by hand, exactly as an approved poll would.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	videoID := strings.TrimSpace(cmd.String("video"))
	trackURI := strings.TrimSpace(cmd.String("track"))
	if videoID == "" && trackURI == "" {
		return fmt.Errorf("%w: --video or --track", shared.ErrMissingArgument)
	}
	if trackURI != "" && !strings.HasPrefix(trackURI, "spotify:track:") {
		return fmt.Errorf("%w: --track must be a spotify:track: URI", shared.ErrInvalidArgument)
	}

	c, err := r.committer(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	report := c.CommitWithProgress(ctx, videoID, trackURI, progress)
	close(progress)
	<-done

	if err := r.writePlain("%s\n", ui.CommitReport(report)); err != nil {
		return err
	}
	if report.YouTube == models.StatusFailed || report.Spotify == models.StatusFailed {
		return fmt.Errorf("%w: commit incomplete", shared.ErrAPIRequest)
	}
	return nil
}

// PlaylistCheck scans the YouTube playlist for a video.
func (r *Runner) PlaylistCheck(ctx context.Context, cmd *cli.Command) error {
	videoID := strings.TrimSpace(cmd.StringArg("video"))
	if videoID == "" {
		return fmt.Errorf("%w: video", shared.ErrMissingArgument)
	}

	c, err := r.committer(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	found, err := c.PlaylistContains(ctx, videoID, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if found {
		return r.writePlain("%s\n", ui.OK(videoID+" is already in the playlist"))
	}
	return r.writePlain("%s\n", ui.Warn(videoID+" is not in the playlist"))
}
