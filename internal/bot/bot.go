package bot

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/cache"
	"github.com/desertthunder/songvote/internal/formatter"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/polls"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
	"github.com/desertthunder/songvote/internal/tasks"
	"golang.org/x/sync/errgroup"
)

// Chat is the outbound Telegram surface.
type Chat interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard services.Keyboard) (int64, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Updater is the inbound update stream.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]services.Update, error)
}

// Searcher runs the cross-catalog search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) tasks.SearchResult
}

// Matcher resolves a pick into a nomination.
type Matcher interface {
	Resolve(ctx context.Context, req models.PendingRequest, c models.Catalog, index int) (tasks.Selection, error)
}

// Polls opens polls and counts ballots.
type Polls interface {
	Open(ctx context.Context, n polls.Nomination) (models.Poll, error)
	Cast(ctx context.Context, b polls.Ballot) polls.Outcome
}

// Ledger reads scores.
type Ledger interface {
	Get(ctx context.Context, userID int64) (*models.ScoreRecord, error)
	Top(ctx context.Context, n int) ([]models.ScoreRecord, error)
}

// Deps are the collaborators a [Bot] drives.
type Deps struct {
	Chat    Chat
	Updates Updater
	Search  Searcher
	Matcher Matcher
	Cache   cache.Store
	Polls   Polls
	Ledger  Ledger
}

// Config holds the bot's runtime settings.
type Config struct {
	AllowedChatID   int64 // 0 accepts every chat
	SearchLimit     int
	PollWait        time.Duration
	Workers         int
	LeaderboardSize int
	YouTubePlaylist string
	SpotifyPlaylist string
}

// Bot dispatches Telegram updates.
type Bot struct {
	Deps
	cfg    Config
	logger *log.Logger
}

// New creates a bot. Zero config values fall back to defaults.
func New(deps Deps, cfg Config, logger *log.Logger) *Bot {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = tasks.DefaultSearchLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 10
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = 30 * time.Second
	}
	return &Bot{Deps: deps, cfg: cfg, logger: shared.WithLogger(logger, "component", "bot")}
}

// Run long-polls for updates until ctx is cancelled. Commands and callbacks run on a bounded
// worker group; poll answers run one at a time in arrival order so the first deciding ballot wins.
func (b *Bot) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)

	ballots := make(chan services.Update, 64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for u := range ballots {
			b.HandleUpdate(ctx, u)
		}
	}()

	var offset int64
	backoff := time.Second
	b.logger.Info("listening for updates", "workers", b.cfg.Workers, "allowed_chat", b.cfg.AllowedChatID)

	for ctx.Err() == nil {
		updates, err := b.Updates.GetUpdates(ctx, offset, b.cfg.PollWait)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			b.logger.Warn("getUpdates failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.PollAnswer != nil {
				select {
				case ballots <- u:
				case <-ctx.Done():
				}
				continue
			}
			g.Go(func() error {
				b.HandleUpdate(ctx, u)
				return nil
			})
		}
	}

	close(ballots)
	<-drained
	_ = g.Wait()
	b.logger.Info("update loop stopped")
	return nil
}

// HandleUpdate routes a single update.
func (b *Bot) HandleUpdate(ctx context.Context, u services.Update) {
	logger := b.logger.With("trace", shared.GenerateID(), "update_id", u.UpdateID)

	switch {
	case u.Message != nil:
		b.handleMessage(ctx, logger, u.Message)
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, logger, u.CallbackQuery)
	case u.PollAnswer != nil:
		b.handlePollAnswer(ctx, logger, u.PollAnswer)
	}
}

func (b *Bot) allowed(chatID int64) bool {
	return b.cfg.AllowedChatID == 0 || chatID == b.cfg.AllowedChatID
}

// ParseCommand splits "/cmd@botname args" into "cmd" and "args". ok is false for non-commands.
func ParseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text, " ")
	head = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (b *Bot) handleMessage(ctx context.Context, logger *log.Logger, msg *services.TelegramMessage) {
	cmd, args, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	if !b.allowed(msg.Chat.ID) {
		logger.Warn("command from unauthorized chat", "chat_id", msg.Chat.ID, "command", cmd)
		return
	}

	logger = logger.With("chat_id", msg.Chat.ID, "command", cmd)
	switch cmd {
	case "song":
		b.handleSong(ctx, logger, msg.Chat.ID, args)
	case "top":
		b.handleTop(ctx, logger, msg.Chat.ID)
	case "stats":
		if msg.From != nil {
			b.handleStats(ctx, logger, msg.Chat.ID, msg.From.ID)
		}
	case "playlists":
		b.reply(ctx, logger, msg.Chat.ID, formatter.Playlists(b.cfg.YouTubePlaylist, b.cfg.SpotifyPlaylist))
	case "help", "start":
		b.reply(ctx, logger, msg.Chat.ID, formatter.Help())
	}
}

func (b *Bot) reply(ctx context.Context, logger *log.Logger, chatID int64, text string) {
	if _, err := b.Chat.SendMessage(ctx, chatID, text, nil); err != nil {
		logger.Error("failed to send message", "error", err)
	}
}

func (b *Bot) handleSong(ctx context.Context, logger *log.Logger, chatID int64, query string) {
	if utf8.RuneCountInString(query) < 2 {
		b.reply(ctx, logger, chatID, formatter.UsageSong)
		return
	}

	result := b.Search.Search(ctx, query, b.cfg.SearchLimit)
	if result.Empty() {
		b.reply(ctx, logger, chatID, formatter.NothingFound)
		return
	}

	token, err := b.Cache.Put(models.PendingRequest{
		ChatID:  chatID,
		Query:   query,
		YouTube: result.YouTube,
		Spotify: result.Spotify,
	})
	if err != nil {
		logger.Error("failed to cache search", "error", err)
		b.reply(ctx, logger, chatID, formatter.SearchError)
		return
	}

	if _, err := b.Chat.SendMessage(ctx, chatID, formatter.SearchPrompt(query), SearchKeyboard(token, result)); err != nil {
		logger.Error("failed to send results", "error", err)
		b.Cache.Remove(token)
		return
	}
	logger.Info("search posted", "query", query, "youtube", len(result.YouTube), "spotify", len(result.Spotify))
}

func (b *Bot) handleTop(ctx context.Context, logger *log.Logger, chatID int64) {
	records, err := b.Ledger.Top(ctx, b.cfg.LeaderboardSize)
	if err != nil {
		logger.Error("failed to read leaderboard", "error", err)
		b.reply(ctx, logger, chatID, formatter.LedgerError)
		return
	}
	b.reply(ctx, logger, chatID, formatter.Leaderboard(records))
}

func (b *Bot) handleStats(ctx context.Context, logger *log.Logger, chatID, userID int64) {
	record, err := b.Ledger.Get(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrUserNotFound):
		b.reply(ctx, logger, chatID, formatter.NoStats)
	case err != nil:
		logger.Error("failed to read stats", "user_id", userID, "error", err)
		b.reply(ctx, logger, chatID, formatter.LedgerError)
	default:
		b.reply(ctx, logger, chatID, formatter.Stats(*record))
	}
}

func (b *Bot) answer(ctx context.Context, logger *log.Logger, id, text string, alert bool) {
	if err := b.Chat.AnswerCallback(ctx, id, text, alert); err != nil {
		logger.Warn("failed to answer callback", "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, logger *log.Logger, cq *services.CallbackQuery) {
	if cq.Message == nil {
		b.answer(ctx, logger, cq.ID, "", false)
		return
	}
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	if !b.allowed(chatID) {
		b.answer(ctx, logger, cq.ID, "", false)
		return
	}

	cb, err := ParseCallback(cq.Data)
	if err != nil {
		logger.Debug("ignoring callback", "data", cq.Data, "error", err)
		b.answer(ctx, logger, cq.ID, "", false)
		return
	}

	switch cb.Action {
	case ActionNoop:
		b.answer(ctx, logger, cq.ID, "", false)
	case ActionCancel:
		b.Cache.Remove(cb.Token)
		if err := b.Chat.DeleteMessage(ctx, chatID, messageID); err != nil {
			logger.Warn("failed to delete results", "error", err)
		}
		b.answer(ctx, logger, cq.ID, formatter.Cancelled, false)
	case ActionSelect:
		b.handleSelect(ctx, logger.With("token", cb.Token), cq, cb)
	}
}

func (b *Bot) handleSelect(ctx context.Context, logger *log.Logger, cq *services.CallbackQuery, cb Callback) {
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	name := cq.From.DisplayName()

	req, ok := b.Cache.Take(cb.Token)
	if !ok {
		b.answer(ctx, logger, cq.ID, formatter.TooSlow, true)
		return
	}
	b.answer(ctx, logger, cq.ID, "", false)

	if err := b.Chat.EditMessageText(ctx, chatID, messageID, formatter.Progress(name)); err != nil {
		logger.Warn("failed to show progress", "error", err)
	}

	sel, err := b.Matcher.Resolve(ctx, req, cb.Catalog, cb.Index)
	if err != nil {
		logger.Warn("selection failed", "catalog", cb.Catalog, "index", cb.Index, "error", err)
		text := formatter.SelectionError
		if errors.Is(err, shared.ErrStaleRequest) {
			text = formatter.TooSlow
		}
		b.reply(ctx, logger, chatID, text)
		return
	}

	if err := b.Chat.DeleteMessage(ctx, chatID, messageID); err != nil {
		logger.Warn("failed to delete results", "error", err)
	}

	recapID := b.sendRecap(ctx, logger, chatID, name, sel)

	p, err := b.Polls.Open(ctx, polls.Nomination{
		ChatID:       chatID,
		ReplyTo:      recapID,
		ProposerID:   cq.From.ID,
		ProposerName: name,
		Title:        sel.Title,
		YouTube:      sel.YouTube,
		Spotify:      sel.Spotify,
	})
	if err != nil {
		logger.Error("failed to open poll", "error", err)
		b.reply(ctx, logger, chatID, formatter.PollError)
		return
	}
	logger.Info("nomination opened", "poll_id", p.ID, "title", sel.Title, "proposer", name)
}

// sendRecap posts the nomination card, with cover art when available, and returns its message id.
func (b *Bot) sendRecap(ctx context.Context, logger *log.Logger, chatID int64, name string, sel tasks.Selection) int64 {
	caption := formatter.Recap(name, sel.Title, sel.YouTube, sel.Spotify)

	if cover := sel.CoverURL(); cover != "" {
		id, err := b.Chat.SendPhoto(ctx, chatID, cover, caption)
		if err == nil {
			return id
		}
		logger.Warn("cover art rejected, sending text recap", "cover", cover, "error", err)
	}

	id, err := b.Chat.SendMessage(ctx, chatID, caption, nil)
	if err != nil {
		logger.Error("failed to send recap", "error", err)
		return 0
	}
	return id
}

func (b *Bot) handlePollAnswer(ctx context.Context, logger *log.Logger, a *services.PollAnswer) {
	outcome := b.Polls.Cast(ctx, polls.Ballot{PollID: a.PollID, VoterID: a.User.ID, Options: a.OptionIDs})
	if outcome != polls.OutcomeNone {
		logger.Info("ballot resolved poll", "poll_id", a.PollID, "outcome", outcome)
	}
}
