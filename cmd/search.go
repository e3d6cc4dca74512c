package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songvote/internal/shared"
	"github.com/desertthunder/songvote/internal/tasks"
	"github.com/desertthunder/songvote/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search runs the same concurrent search /song uses and prints both result sets.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	cats, err := r.connectCatalogs(ctx)
	if err != nil {
		return err
	}

	agg := tasks.NewAggregator(cats.youtube, cats.spotify, r.config.Bot.RequestTimeout(), r.logger)
	result := agg.Search(ctx, query, cmd.Int("limit"))

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writePlain("%s\n", ui.SearchResults(result))
}
