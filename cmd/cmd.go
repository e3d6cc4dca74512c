// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the bot.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the Telegram bot until interrupted",
		Action: r.Serve,
	}
}

// setupCommand handles database and config bootstrapping.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand obtains refresh tokens for the catalogs.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage catalog authentication",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authorize Spotify and store the refresh token",
				Action: r.AuthSpotify,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Authorize YouTube and store the refresh token",
				Action:  r.AuthYouTube,
			},
			{
				Name:   "status",
				Usage:  "Check that stored credentials still work",
				Action: r.AuthStatus,
			},
		},
	}
}

// searchCommand runs the cross-catalog search from the terminal.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search both catalogs the way /song does",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per catalog",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// ledgerCommand reads the score ledger.
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect reputation scores and nomination history",
		Commands: []*cli.Command{
			{
				Name:  "top",
				Usage: "Show the leaderboard",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of nominators to show",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LedgerTop,
			},
			{
				Name:  "stats",
				Usage: "Show one nominator's record",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "user",
						Usage:    "Telegram user id",
						Required: true,
					},
				},
				Action: r.LedgerStats,
			},
			{
				Name:  "history",
				Usage: "List resolved nominations, newest first",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "user",
						Usage: "Only nominations by this Telegram user id",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum rows",
						Value: 20,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, or text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Export file path (requires --format)",
					},
				},
				Action: r.LedgerHistory,
			},
		},
	}
}

// playlistCommand drives the committer by hand.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Operate on the shared playlists directly",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a track to both playlists, skipping YouTube duplicates",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "video",
						Usage: "YouTube video id",
					},
					&cli.StringFlag{
						Name:  "track",
						Usage: "Spotify track URI",
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "check",
				Usage: "Report whether a video is already in the YouTube playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "video"},
				},
				Action: r.PlaylistCheck,
			},
		},
	}
}
