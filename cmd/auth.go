package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/songvote/internal/server"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthSpotify runs the authorization code flow for Spotify and stores the refresh token.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	sp, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map(), r.config.Bot.RequestsPerSecond)
	if err != nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", err, r.configPath)
	}

	token, err := r.doOAuth(ctx, sp)
	if err != nil {
		return err
	}

	if err := r.saveTokens("spotify", token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	r.writePlainln("✓ Spotify authorization successful")
	return r.writePlain("✓ Refresh token saved to %s\n", r.configPath)
}

// AuthYouTube runs the authorization code flow for YouTube and stores the refresh token.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	yt, err := services.NewYouTubeService(r.config.Credentials.YouTube.Map(), r.config.Bot.RequestsPerSecond)
	if err != nil {
		return fmt.Errorf("%w: YouTube client_id and client_secret must be set in %s", err, r.configPath)
	}

	token, err := r.doOAuth(ctx, yt)
	if err != nil {
		return err
	}

	if err := r.saveTokens("youtube", token); err != nil {
		return fmt.Errorf("failed to update youtube configuration: %w", err)
	}

	r.writePlainln("✓ YouTube authorization successful")
	return r.writePlain("✓ Refresh token saved to %s\n", r.configPath)
}

// AuthStatus calls a cheap authenticated endpoint on every configured service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	failures := 0
	report := func(name, detail string, err error) {
		if err != nil {
			failures++
			r.writePlain("✗ %-8s %v\n", name, err)
			return
		}
		r.writePlain("✓ %-8s %s\n", name, detail)
	}

	if yt, err := r.youtubeService(ctx); err != nil {
		report("YouTube", "", err)
	} else {
		title, err := yt.ChannelTitle(ctx)
		report("YouTube", "channel "+title, err)
	}

	if sp, err := r.spotifyService(ctx); err != nil {
		report("Spotify", "", err)
	} else {
		user, err := sp.UserProfile(ctx)
		if err == nil {
			report("Spotify", "user "+user.DisplayName, nil)
		} else {
			report("Spotify", "", err)
		}
	}

	if tg, err := services.NewTelegramService(r.config.Telegram.APIURL, r.config.Telegram.Token, r.config.Bot.RequestTimeout()); err != nil {
		report("Telegram", "", err)
	} else {
		n, err := tg.MemberCount(ctx, r.config.Telegram.AllowedChatID)
		report("Telegram", fmt.Sprintf("%d members in chat %d", n, r.config.Telegram.AllowedChatID), err)
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d service(s) failed", shared.ErrNotAuthenticated, failures)
	}
	return nil
}

// doOAuth serves the callback locally, sends the user to the consent page, and waits for the token.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateToken(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	cs := server.NewCallbackServer(r.config.Server.Addr(), oauthSrv.OAuthConfig(), state, r.logger)
	if err := cs.Start(); err != nil {
		return nil, err
	}

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlain("→ Opening browser for %s authorization...\n", oauthSrv.Name())
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", server.DefaultWait)
	token, err := cs.Wait(ctx, server.DefaultWait)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

// tokenTarget returns the credential block of config that stores tokens for service.
func tokenTarget(config *shared.Config, service string) (interface{ Update(*oauth2.Token) error }, error) {
	switch service {
	case "spotify":
		return &config.Credentials.Spotify, nil
	case "youtube":
		return &config.Credentials.YouTube, nil
	default:
		return nil, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, service)
	}
}

// saveTokens stores token for service in memory and in the config file.
//
// The file is re-read before writing so secrets that came from the environment stay out of it.
func (r *Runner) saveTokens(service string, token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	target, err := tokenTarget(r.config, service)
	if err != nil {
		return err
	}
	if err := target.Update(token); err != nil {
		return err
	}
	if r.configPath == "" {
		return nil
	}

	onDisk := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if onDisk, err = shared.LoadConfig(r.configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	target, _ = tokenTarget(onDisk, service)
	if err := target.Update(token); err != nil {
		return err
	}

	if err := shared.SaveConfig(r.configPath, onDisk); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
