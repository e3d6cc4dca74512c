package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/songvote/internal/formatter"
	"github.com/desertthunder/songvote/internal/repositories"
	"github.com/desertthunder/songvote/internal/shared"
	"github.com/desertthunder/songvote/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) scores() (*repositories.ScoreRepository, func(), error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewScoreRepository(db), func() { db.Close() }, nil
}

// LedgerTop prints the leaderboard.
func (r *Runner) LedgerTop(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.scores()
	if err != nil {
		return err
	}
	defer done()

	records, err := repo.Top(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}
	return r.writePlain("%s\n", ui.Leaderboard(records))
}

// LedgerStats prints one nominator's record.
func (r *Runner) LedgerStats(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.scores()
	if err != nil {
		return err
	}
	defer done()

	userID := cmd.Int64("user")
	record, err := repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrUserNotFound) {
		return r.writePlain("%s\n", ui.Warn(fmt.Sprintf("User %d has no record yet.", userID)))
	}
	if err != nil {
		return err
	}
	return r.writePlain("%s", ui.Stats(*record))
}

// LedgerHistory prints resolved nominations, or exports them when --format is set.
func (r *Runner) LedgerHistory(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.scores()
	if err != nil {
		return err
	}
	defer done()

	nominations, err := repo.History(ctx, cmd.Int64("user"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	formatName := cmd.String("format")
	output := cmd.String("output")
	if formatName == "" {
		if output != "" {
			return fmt.Errorf("%w: --output requires --format", shared.ErrInvalidArgument)
		}
		return r.writePlain("%s\n", ui.History(nominations))
	}

	format, err := formatter.ParseFormat(formatName)
	if err != nil {
		return err
	}

	if output == "" {
		data, err := formatter.RenderHistory(nominations, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	path, err := formatter.WriteHistoryExport(nominations, format, output)
	if err != nil {
		return err
	}
	r.logger.Info("history exported", "path", path, "rows", len(nominations))
	return r.writePlain("✓ Exported %d nominations to %s\n", len(nominations), path)
}
