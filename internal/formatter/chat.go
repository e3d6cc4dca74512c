// package formatter renders bot messages (Telegram HTML) and ledger exports (CSV, Markdown, plain text)
package formatter

import (
	"fmt"
	"html"
	"strings"

	"github.com/desertthunder/songvote/internal/models"
)

// Fixed replies.
const (
	UsageSong      = "⚠️ Give me a real title after /song, at least two characters."
	NothingFound   = "❌ Nothing found on either catalog. Try another query."
	TooSlow        = "❌ Too slow, that search expired. Run /song again."
	Cancelled      = "Cancelled. Nobody saw anything."
	SelectionError = "❌ Something broke while matching that track. Try again."
	PollError      = "❌ Could not start the vote for this track. Try again."
	SearchError    = "❌ Search failed. Try again in a moment."
	LedgerError    = "❌ The ledger is unavailable right now."
	NoStats        = "⚠️ You haven't nominated anything yet."
	EmptyBoard     = "📭 Nobody has scored yet."
)

// MaxButtonLabel bounds inline button text in runes.
const MaxButtonLabel = 60

// RankTitle maps reputation to a rank on the ladder.
func RankTitle(reputation int) string {
	switch {
	case reputation < 0:
		return "🐀 Blacklisted"
	case reputation < 50:
		return "👶 Rookie"
	case reputation < 150:
		return "🎧 Regular"
	case reputation < 300:
		return "💿 Tastemaker"
	case reputation < 600:
		return "👑 Curator"
	default:
		return "👽 Legend"
	}
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// SearchPrompt heads the result keyboard.
func SearchPrompt(query string) string {
	return fmt.Sprintf("🔍 <b>Found this for:</b> <i>%s</i>\nPick the right track before the search expires:", html.EscapeString(query))
}

// ResultLabel renders one keyboard row for a catalog hit.
func ResultLabel(r models.CatalogResult) string {
	icon := "📹"
	if r.Catalog == models.CatalogSpotify {
		icon = "🎵"
	}
	return Truncate(icon+" "+r.Label(), MaxButtonLabel)
}

// Progress replaces the keyboard while the pick is being matched.
func Progress(name string) string {
	return fmt.Sprintf("🔄 %s is cooking...", html.EscapeString(name))
}

func link(href, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(text))
}

// Recap is the caption posted above a poll.
func Recap(proposer, title string, youtube, spotify *models.CatalogResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💊 <b>New nomination from:</b> %s\n", html.EscapeString(proposer))
	fmt.Fprintf(&b, "🎵 <b>Track:</b> %s\n\n", html.EscapeString(title))

	if youtube != nil {
		fmt.Fprintf(&b, "📹 %s\n", link(youtube.Link(), "YouTube"))
	} else {
		b.WriteString("📹 <b>YouTube:</b> ❌ not found\n")
	}
	if spotify != nil {
		fmt.Fprintf(&b, "🟢 %s\n", link(spotify.Link(), "Spotify"))
	} else {
		b.WriteString("🟢 <b>Spotify:</b> ❌ not found\n")
	}
	return b.String()
}

func statusLine(service string, s models.CommitStatus) string {
	icon := "📹"
	if service == "Spotify" {
		icon = "🟢"
	}
	switch s {
	case models.StatusAdded:
		return fmt.Sprintf("%s %s: <b>added</b> ✅", icon, service)
	case models.StatusDuplicate:
		return fmt.Sprintf("%s %s: ⚠️ already in the playlist", icon, service)
	case models.StatusFailed:
		return fmt.Sprintf("%s %s: ❌ insert failed", icon, service)
	default:
		return fmt.Sprintf("%s %s: ⏭️ skipped", icon, service)
	}
}

// CommitReport lists the per-playlist results of an approval.
func CommitReport(r models.CommitReport) string {
	return statusLine("YouTube", r.YouTube) + "\n" + statusLine("Spotify", r.Spotify)
}

// Approved announces a win with its commit report.
func Approved(res models.Resolution) string {
	return fmt.Sprintf("❄️ <b>Approved!</b> %s made it in. (%+d reputation for %s)\n\n%s",
		html.EscapeString(res.Title), models.WinPoints, html.EscapeString(res.ProposerName), CommitReport(res.Report))
}

// Rejected announces a loss.
func Rejected(res models.Resolution) string {
	return fmt.Sprintf("🧱 <b>Rejected.</b> %s didn't make it. (%+d reputation for %s)",
		html.EscapeString(res.Title), models.LossPoints, html.EscapeString(res.ProposerName))
}

func medal(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return "🔹"
	}
}

// Leaderboard renders the top nominators.
func Leaderboard(records []models.ScoreRecord) string {
	if len(records) == 0 {
		return EmptyBoard
	}

	var b strings.Builder
	b.WriteString("🏆 <b>LEADERBOARD</b> 🏆\n<i>Who is actually picking the hits:</i>\n\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%s <b>%s</b>: %d reputation\n", medal(i), html.EscapeString(r.DisplayName), r.Reputation)
	}
	return b.String()
}

// Stats renders one nominator's record.
func Stats(r models.ScoreRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>RECORD OF %s</b>\n\n", html.EscapeString(r.DisplayName))
	fmt.Fprintf(&b, "🏷️ <b>Rank:</b> %s\n", RankTitle(r.Reputation))
	fmt.Fprintf(&b, "💎 <b>Reputation:</b> %d\n", r.Reputation)
	fmt.Fprintf(&b, "✅ <b>Accepted:</b> %d\n", r.AcceptedCount)
	fmt.Fprintf(&b, "❌ <b>Rejected:</b> %d\n", r.RejectedCount)
	fmt.Fprintf(&b, "📈 <b>Win rate:</b> %d%%", r.WinRate())
	return b.String()
}

// YouTubePlaylistURL is the public URL of a YouTube playlist.
func YouTubePlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + id
}

// SpotifyPlaylistURL is the public URL of a Spotify playlist.
func SpotifyPlaylistURL(id string) string {
	return "https://open.spotify.com/playlist/" + id
}

// Playlists links both shared playlists. An empty id is shown as not configured.
func Playlists(youtubeID, spotifyID string) string {
	var b strings.Builder
	b.WriteString("💿 <b>THE ARCHIVE</b>\n<i>Where the approved tracks live:</i>\n\n")
	if youtubeID != "" {
		fmt.Fprintf(&b, "📹 <b>YouTube:</b> %s\n", link(YouTubePlaylistURL(youtubeID), "watch the playlist"))
	} else {
		b.WriteString("📹 <b>YouTube:</b> not configured\n")
	}
	if spotifyID != "" {
		fmt.Fprintf(&b, "🟢 <b>Spotify:</b> %s\n", link(SpotifyPlaylistURL(spotifyID), "listen to the playlist"))
	} else {
		b.WriteString("🟢 <b>Spotify:</b> not configured\n")
	}
	return b.String()
}

// Help lists the chat commands.
func Help() string {
	return "📚 <b>COMMANDS</b>\n\n" +
		"/song &lt;title&gt; - Nominate a track for the playlists\n" +
		"/playlists - Links to both playlists\n" +
		"/top - Leaderboard\n" +
		"/stats - Your record\n" +
		"/help - This message"
}
