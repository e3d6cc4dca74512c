package bot

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/formatter"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
)

// Announcer posts poll outcomes to the chat. Approvals are followed by the leaderboard.
type Announcer struct {
	chat   Chat
	ledger Ledger
	size   int
	logger *log.Logger
}

// NewAnnouncer creates an announcer. A nil ledger skips the leaderboard.
func NewAnnouncer(chat Chat, ledger Ledger, leaderboardSize int, logger *log.Logger) *Announcer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &Announcer{chat: chat, ledger: ledger, size: leaderboardSize, logger: shared.WithLogger(logger, "component", "announce")}
}

// Announce implements polls.Announcer.
func (a *Announcer) Announce(ctx context.Context, res models.Resolution) {
	logger := a.logger.With("poll_id", res.PollID)

	if !res.Won {
		if _, err := a.chat.SendMessage(ctx, res.ChatID, formatter.Rejected(res), nil); err != nil {
			logger.Error("failed to announce rejection", "error", err)
		}
		return
	}

	if _, err := a.chat.SendMessage(ctx, res.ChatID, formatter.Approved(res), nil); err != nil {
		logger.Error("failed to announce approval", "error", err)
	}

	if a.ledger == nil {
		return
	}
	records, err := a.ledger.Top(ctx, a.size)
	if err != nil {
		logger.Warn("failed to read leaderboard", "error", err)
		return
	}
	if _, err := a.chat.SendMessage(ctx, res.ChatID, formatter.Leaderboard(records), nil); err != nil {
		logger.Warn("failed to send leaderboard", "error", err)
	}
}
