package bot

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songvote/internal/cache"
	"github.com/desertthunder/songvote/internal/formatter"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/polls"
	"github.com/desertthunder/songvote/internal/repositories"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
	"github.com/desertthunder/songvote/internal/tasks"
	th "github.com/desertthunder/songvote/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatID = int64(-100)

type harness struct {
	bot     *Bot
	chat    *th.MockChat
	youtube *th.MockCatalog
	spotify *th.MockCatalog
	store   *cache.MemoryStore
	polls   *polls.Manager
	ledger  *repositories.ScoreRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := shared.NewLogger(io.Discard)

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, shared.RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	h := &harness{
		chat: &th.MockChat{Members: 3, NextPollID: "poll-1"},
		youtube: &th.MockCatalog{ServiceName: "YouTube", Results: map[string][]models.CatalogResult{
			"*": {{Catalog: models.CatalogYouTube, ExternalID: "v1", Title: "Artist - Song X (Official Video)"}},
		}},
		spotify: &th.MockCatalog{ServiceName: "Spotify", Results: map[string][]models.CatalogResult{
			"*": {{Catalog: models.CatalogSpotify, ExternalID: "t1", URI: "spotify:track:t1", Artist: "Artist", Title: "Song X", ArtworkURL: "https://i.scdn.co/cover.jpg"}},
		}},
		store:  cache.NewMemoryStore(time.Minute),
		ledger: repositories.NewScoreRepository(db),
	}

	committer := tasks.NewCommitter(h.youtube, "PL", h.spotify, "SP", time.Second, logger)
	announcer := NewAnnouncer(h.chat, h.ledger, 10, logger)
	h.polls = polls.NewManager(h.chat, committer, h.ledger, announcer, logger)

	h.bot = New(Deps{
		Chat:    h.chat,
		Search:  tasks.NewAggregator(h.youtube, h.spotify, time.Second, logger),
		Matcher: tasks.NewMatcher(h.youtube, h.spotify, time.Second, logger),
		Cache:   h.store,
		Polls:   h.polls,
		Ledger:  h.ledger,
	}, Config{AllowedChatID: chatID, YouTubePlaylist: "PL", SpotifyPlaylist: "SP"}, logger)
	return h
}

func command(text string, from int64) services.Update {
	return services.Update{Message: &services.TelegramMessage{
		MessageID: 1,
		Chat:      services.TelegramChat{ID: chatID},
		From:      &services.TelegramUser{ID: from, Username: "dj"},
		Text:      text,
	}}
}

func press(data string, messageID int64) services.Update {
	return services.Update{CallbackQuery: &services.CallbackQuery{
		ID:      "cb",
		From:    services.TelegramUser{ID: 7, Username: "dj"},
		Message: &services.TelegramMessage{MessageID: messageID, Chat: services.TelegramChat{ID: chatID}},
		Data:    data,
	}}
}

func ballot(voter int64, option int) services.Update {
	return services.Update{PollAnswer: &services.PollAnswer{PollID: "poll-1", User: services.TelegramUser{ID: voter}, OptionIDs: []int{option}}}
}

// searchToken runs /song and returns the token and message id of the result keyboard.
func (h *harness) searchToken(t *testing.T) (string, int64) {
	t.Helper()
	h.bot.HandleUpdate(context.Background(), command("/song Song X", 7))

	sent := h.chat.Sent()
	require.NotEmpty(t, sent)
	last := sent[len(sent)-1]
	require.NotEmpty(t, last.Keyboard, "expected a result keyboard")

	cb, err := ParseCallback(last.Keyboard[1][0].CallbackData)
	require.NoError(t, err)
	return cb.Token, int64(len(sent))
}

func TestSongCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("short query gets usage", func(t *testing.T) {
		h := newHarness(t)
		h.bot.HandleUpdate(ctx, command("/song x", 7))

		sent := h.chat.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, formatter.UsageSong, sent[0].Text)
		assert.Zero(t, h.youtube.SearchCount())
	})

	t.Run("nothing found", func(t *testing.T) {
		h := newHarness(t)
		h.youtube.Results = nil
		h.spotify.Results = nil
		h.bot.HandleUpdate(ctx, command("/song nothing here", 7))

		sent := h.chat.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, formatter.NothingFound, sent[0].Text)
		assert.Zero(t, h.store.Len())
	})

	t.Run("posts keyboard and caches results", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.searchToken(t)

		req, ok := h.store.Get(token)
		require.True(t, ok)
		assert.Equal(t, "Song X", req.Query)
		assert.Len(t, req.Spotify, 1)
		assert.Len(t, req.YouTube, 1)

		kb := h.chat.Sent()[0].Keyboard
		assert.Equal(t, SpotifyHeader, kb[0][0].Text)
		assert.Equal(t, CancelData(token), kb[len(kb)-1][0].CallbackData)
	})

	t.Run("other chats are ignored", func(t *testing.T) {
		h := newHarness(t)
		u := command("/song Song X", 7)
		u.Message.Chat.ID = 555
		h.bot.HandleUpdate(ctx, u)

		assert.Empty(t, h.chat.Sent())
		assert.Zero(t, h.youtube.SearchCount())
	})
}

func TestNominationFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	token, keyboardID := h.searchToken(t)
	h.bot.HandleUpdate(ctx, press(SelectData(models.CatalogSpotify, token, 0), keyboardID))

	t.Run("selection posts recap and poll", func(t *testing.T) {
		require.Len(t, h.chat.Edits, 1)
		assert.Contains(t, h.chat.Edits[0], "@dj is cooking")
		assert.Equal(t, []int64{keyboardID}, h.chat.Deleted)

		sent := h.chat.Sent()
		recap := sent[len(sent)-1]
		assert.Equal(t, "https://i.scdn.co/cover.jpg", recap.Photo)
		assert.Contains(t, recap.Text, "Artist - Song X")
		assert.Contains(t, recap.Text, "https://youtu.be/v1")

		require.Len(t, h.chat.Polls, 1)
		assert.Equal(t, int64(len(sent)), h.chat.Polls[0].ReplyTo)
		assert.Equal(t, 1, h.polls.Active())

		_, ok := h.store.Get(token)
		assert.False(t, ok, "token is consumed by the selection")
	})

	t.Run("second press on the same keyboard is too slow", func(t *testing.T) {
		h.bot.HandleUpdate(ctx, press(SelectData(models.CatalogYouTube, token, 0), keyboardID))
		assert.Equal(t, formatter.TooSlow, h.chat.Answers[len(h.chat.Answers)-1])
		assert.Len(t, h.chat.Polls, 1)
	})

	t.Run("quorum of yes votes approves and commits", func(t *testing.T) {
		h.bot.HandleUpdate(ctx, ballot(11, polls.OptionYes))
		h.bot.HandleUpdate(ctx, ballot(12, polls.OptionYes))

		assert.Zero(t, h.polls.Active())
		assert.Equal(t, 1, h.chat.StopCount())
		assert.Equal(t, []string{"v1"}, h.youtube.Inserted)
		assert.Equal(t, []string{"spotify:track:t1"}, h.spotify.Inserted)

		score, err := h.ledger.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 10, score.Reputation)
		assert.Equal(t, "@dj", score.DisplayName)

		sent := h.chat.Sent()
		require.GreaterOrEqual(t, len(sent), 2)
		approval, board := sent[len(sent)-2], sent[len(sent)-1]
		assert.Contains(t, approval.Text, "Approved")
		assert.Contains(t, approval.Text, "YouTube: <b>added</b>")
		assert.Contains(t, board.Text, "LEADERBOARD")
	})

	t.Run("late ballots change nothing", func(t *testing.T) {
		before := len(h.chat.Sent())
		h.bot.HandleUpdate(ctx, ballot(13, polls.OptionNo))
		assert.Len(t, h.chat.Sent(), before)

		score, _ := h.ledger.Get(ctx, 7)
		assert.Equal(t, 10, score.Reputation)
	})

	t.Run("stats reflect the win", func(t *testing.T) {
		h.bot.HandleUpdate(ctx, command("/stats", 7))
		sent := h.chat.Sent()
		assert.Contains(t, sent[len(sent)-1].Text, "Win rate:</b> 100%")
	})
}

func TestRejectionFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.spotify.Results["*"][0].ArtworkURL = ""
	h.youtube.Results["*"][0].ArtworkURL = ""

	token, keyboardID := h.searchToken(t)
	h.chat.PhotoErr = assert.AnError
	h.bot.HandleUpdate(ctx, press(SelectData(models.CatalogYouTube, token, 0), keyboardID))

	sent := h.chat.Sent()
	recap := sent[len(sent)-1]
	assert.Empty(t, recap.Photo, "rejected photo falls back to text")
	assert.Contains(t, recap.Text, "Artist - Song X (Official Video)")
	assert.Equal(t, []string{"Artist - Song X"}, h.spotify.Queries[1:], "counterpart query uses the cleaned title")

	h.bot.HandleUpdate(ctx, ballot(11, polls.OptionNo))
	h.bot.HandleUpdate(ctx, ballot(12, polls.OptionNo))

	score, err := h.ledger.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, -2, score.Reputation)
	assert.Equal(t, 1, score.RejectedCount)
	assert.Empty(t, h.youtube.Inserted)

	sent = h.chat.Sent()
	assert.Contains(t, sent[len(sent)-1].Text, "Rejected")
}

func TestCallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel removes the search", func(t *testing.T) {
		h := newHarness(t)
		token, keyboardID := h.searchToken(t)

		h.bot.HandleUpdate(ctx, press(CancelData(token), keyboardID))

		assert.Zero(t, h.store.Len())
		assert.Equal(t, []int64{keyboardID}, h.chat.Deleted)
		assert.Equal(t, []string{formatter.Cancelled}, h.chat.Answers)
	})

	t.Run("noop and garbage are acknowledged silently", func(t *testing.T) {
		h := newHarness(t)
		h.bot.HandleUpdate(ctx, press(NoopData, 1))
		h.bot.HandleUpdate(ctx, press("garbage", 1))

		assert.Equal(t, []string{"", ""}, h.chat.Answers)
		assert.Empty(t, h.chat.Sent())
	})

	t.Run("expired token alerts", func(t *testing.T) {
		h := newHarness(t)
		h.bot.HandleUpdate(ctx, press(SelectData(models.CatalogSpotify, "deadbeef", 0), 1))

		assert.Equal(t, []string{formatter.TooSlow}, h.chat.Answers)
		assert.Empty(t, h.chat.Polls)
	})

	t.Run("out of range index reports stale", func(t *testing.T) {
		h := newHarness(t)
		token, keyboardID := h.searchToken(t)
		h.bot.HandleUpdate(ctx, press(SelectData(models.CatalogSpotify, token, 9), keyboardID))

		sent := h.chat.Sent()
		assert.Equal(t, formatter.TooSlow, sent[len(sent)-1].Text)
		assert.Empty(t, h.chat.Polls)
	})

	t.Run("poll failure is reported", func(t *testing.T) {
		h := newHarness(t)
		h.chat.PollErr = assert.AnError
		token, keyboardID := h.searchToken(t)
		h.bot.HandleUpdate(ctx, press(SelectData(models.CatalogSpotify, token, 0), keyboardID))

		sent := h.chat.Sent()
		assert.Equal(t, formatter.PollError, sent[len(sent)-1].Text)
	})
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("stats without record", func(t *testing.T) {
		h := newHarness(t)
		h.bot.HandleUpdate(ctx, command("/stats", 99))
		assert.Equal(t, formatter.NoStats, h.chat.Sent()[0].Text)
	})

	t.Run("top", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ledger.ApplyOutcome(ctx, 1, "@one", true))
		h.bot.HandleUpdate(ctx, command("/top@songvote_bot", 7))
		assert.Contains(t, h.chat.Sent()[0].Text, "🥇 <b>@one</b>: 10 reputation")
	})

	t.Run("playlists and help", func(t *testing.T) {
		h := newHarness(t)
		h.bot.HandleUpdate(ctx, command("/playlists", 7))
		h.bot.HandleUpdate(ctx, command("/help", 7))
		h.bot.HandleUpdate(ctx, command("/unknown", 7))
		h.bot.HandleUpdate(ctx, command("not a command", 7))

		sent := h.chat.Sent()
		require.Len(t, sent, 2)
		assert.Contains(t, sent[0].Text, "list=PL")
		assert.Equal(t, formatter.Help(), sent[1].Text)
	})
}

type fakeUpdater struct {
	mu      sync.Mutex
	batches [][]services.Update
	offsets []int64
}

func (f *fakeUpdater) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]services.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeUpdater) Offsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.offsets...)
}

func TestRun(t *testing.T) {
	h := newHarness(t)

	help := command("/help", 7)
	help.UpdateID = 40
	playlists := command("/playlists", 7)
	playlists.UpdateID = 41

	updater := &fakeUpdater{batches: [][]services.Update{{help, playlists}}}
	h.bot.Updates = updater

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.bot.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(h.chat.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(updater.Offsets()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{0, 42}, updater.Offsets())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	texts := []string{h.chat.Sent()[0].Text, h.chat.Sent()[1].Text}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "COMMANDS")
	assert.Contains(t, joined, "THE ARCHIVE")
}

type recordingPolls struct {
	mu     sync.Mutex
	voters []int64
}

func (r *recordingPolls) Open(ctx context.Context, n polls.Nomination) (models.Poll, error) {
	return models.Poll{}, nil
}

// Cast stalls earlier voters longer so concurrent handling would reorder them.
func (r *recordingPolls) Cast(ctx context.Context, b polls.Ballot) polls.Outcome {
	time.Sleep(time.Duration(5-b.VoterID) * 5 * time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voters = append(r.voters, b.VoterID)
	return polls.OutcomeNone
}

func (r *recordingPolls) Voters() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.voters...)
}

func TestRunCastsBallotsInArrivalOrder(t *testing.T) {
	h := newHarness(t)
	rec := &recordingPolls{}
	h.bot.Polls = rec

	var batch []services.Update
	for id := int64(1); id <= 4; id++ {
		u := ballot(id, polls.OptionYes)
		u.UpdateID = id
		batch = append(batch, u)
	}
	help := command("/help", 7)
	help.UpdateID = 5
	batch = append(batch, help)

	updater := &fakeUpdater{batches: [][]services.Update{batch}}
	h.bot.Updates = updater

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.bot.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(rec.Voters()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3, 4}, rec.Voters())
	assert.Eventually(t, func() bool { return len(h.chat.Sent()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, []int64{0, 6}, updater.Offsets())
}
