package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/songvote/internal/bot"
	"github.com/desertthunder/songvote/internal/cache"
	"github.com/desertthunder/songvote/internal/polls"
	"github.com/desertthunder/songvote/internal/repositories"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
	"github.com/desertthunder/songvote/internal/tasks"
	"github.com/gofrs/flock"
	"github.com/urfave/cli/v3"
)

// sweepInterval is how often expired searches are dropped from the cache.
const sweepInterval = time.Minute

// catalogs is the pair of catalog clients; either may be nil when not configured.
type catalogs struct {
	youtube      services.Searcher
	youtubeLists tasks.YouTubePlaylist
	spotify      services.Searcher
	spotifyLists services.PlaylistInserter
}

// connectCatalogs authenticates both catalogs. A catalog that fails is logged and left out.
func (r *Runner) connectCatalogs(ctx context.Context) (catalogs, error) {
	var c catalogs

	if yt, err := r.youtubeService(ctx); err != nil {
		r.logger.Warn("youtube unavailable", "error", err)
	} else {
		c.youtube, c.youtubeLists = yt, yt
	}

	if sp, err := r.spotifyService(ctx); err != nil {
		r.logger.Warn("spotify unavailable", "error", err)
	} else {
		c.spotify, c.spotifyLists = sp, sp
	}

	if c.youtube == nil && c.spotify == nil {
		return c, fmt.Errorf("no catalog could be authenticated")
	}
	return c, nil
}

// acquireLock takes an exclusive lock next to the database. Polls and update offsets
// live in memory, so only one bot may run per database.
func (r *Runner) acquireLock() (*flock.Flock, error) {
	lock := flock.New(r.config.Database.Path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is held", shared.ErrAlreadyRunning, lock.Path())
	}
	return lock, nil
}

// Serve wires the pipeline and long-polls Telegram until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	lock, err := r.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release lock", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	tg, err := services.NewTelegramService(r.config.Telegram.APIURL, r.config.Telegram.Token, r.config.Bot.RequestTimeout())
	if err != nil {
		return err
	}

	cats, err := r.connectCatalogs(ctx)
	if err != nil {
		return err
	}

	timeout := r.config.Bot.RequestTimeout()
	ytPlaylist := r.config.Credentials.YouTube.PlaylistID
	spPlaylist := r.config.Credentials.Spotify.PlaylistID

	store := cache.NewMemoryStore(r.config.Bot.CacheTTL(), cache.WithLogger(r.logger))
	go store.Run(ctx, sweepInterval)

	scores := repositories.NewScoreRepository(db)
	committer := tasks.NewCommitter(cats.youtubeLists, ytPlaylist, cats.spotifyLists, spPlaylist, timeout, r.logger)
	announcer := bot.NewAnnouncer(tg, scores, 10, r.logger)
	manager := polls.NewManager(tg, committer, scores, announcer, r.logger)

	b := bot.New(bot.Deps{
		Chat:    tg,
		Updates: tg,
		Search:  tasks.NewAggregator(cats.youtube, cats.spotify, timeout, r.logger),
		Matcher: tasks.NewMatcher(cats.youtube, cats.spotify, timeout, r.logger),
		Cache:   store,
		Polls:   manager,
		Ledger:  scores,
	}, bot.Config{
		AllowedChatID:   r.config.Telegram.AllowedChatID,
		SearchLimit:     r.config.Bot.SearchLimit,
		PollWait:        time.Duration(r.config.Telegram.PollTimeoutSeconds) * time.Second,
		Workers:         r.config.Bot.Workers,
		LeaderboardSize: 10,
		YouTubePlaylist: ytPlaylist,
		SpotifyPlaylist: spPlaylist,
	}, r.logger)

	r.logger.Info("bot started", "chat", r.config.Telegram.AllowedChatID, "db", r.config.Database.Path)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.logger.Info("bot stopped", "pending_searches", store.Len(), "open_polls", manager.Active())
	return nil
}
