package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/songvote/internal/formatter"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/tasks"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(NewStyle("#626262")).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return NewBold("#7D56F4").Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// rankName drops the emoji prefix from a rank title.
func rankName(reputation int) string {
	title := formatter.RankTitle(reputation)
	if _, name, ok := strings.Cut(title, " "); ok {
		return name
	}
	return title
}

// Leaderboard renders the ranked score table.
func Leaderboard(records []models.ScoreRecord) string {
	if len(records) == 0 {
		return Muted("Nobody has scored yet.")
	}

	t := newTable("#", "Nominator", "Reputation", "Accepted", "Rejected", "Win rate", "Rank")
	for i, r := range records {
		t.Row(
			strconv.Itoa(i+1),
			r.DisplayName,
			strconv.Itoa(r.Reputation),
			strconv.Itoa(r.AcceptedCount),
			strconv.Itoa(r.RejectedCount),
			fmt.Sprintf("%d%%", r.WinRate()),
			rankName(r.Reputation),
		)
	}
	return Title("Leaderboard") + "\n" + t.String()
}

// Stats renders one nominator's record.
func Stats(r models.ScoreRecord) string {
	var b strings.Builder
	b.WriteString(Title(fmt.Sprintf("%s (%d)", r.DisplayName, r.UserID)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Rank:       %s\n", rankName(r.Reputation))
	fmt.Fprintf(&b, "Reputation: %d\n", r.Reputation)
	fmt.Fprintf(&b, "Accepted:   %s\n", OK(strconv.Itoa(r.AcceptedCount)))
	fmt.Fprintf(&b, "Rejected:   %s\n", Err(strconv.Itoa(r.RejectedCount)))
	fmt.Fprintf(&b, "Win rate:   %d%%\n", r.WinRate())
	if !r.UpdatedAt.IsZero() {
		b.WriteString(Muted("last change " + r.UpdatedAt.Local().Format("2006-01-02 15:04")))
		b.WriteString("\n")
	}
	return b.String()
}

// History renders resolved nominations, newest first.
func History(nominations []models.Nomination) string {
	if len(nominations) == 0 {
		return Muted("No resolved nominations yet.")
	}

	t := newTable("When", "Title", "Proposer", "Votes", "Outcome", "YouTube", "Spotify")
	for _, n := range nominations {
		outcome := Err("loss")
		if n.Won {
			outcome = OK("win")
		}
		t.Row(
			n.ResolvedAt.Local().Format("2006-01-02 15:04"),
			formatter.Truncate(n.Title, 40),
			n.ProposerName,
			fmt.Sprintf("%d/%d (%d no)", n.YesVotes, n.RequiredVotes, n.NoVotes),
			outcome,
			string(n.YouTubeStatus),
			string(n.SpotifyStatus),
		)
	}
	return t.String()
}

// SearchResults renders both catalogs' hits in catalog order.
func SearchResults(result tasks.SearchResult) string {
	if result.Empty() {
		return Warn(fmt.Sprintf("Nothing found for %q", result.Query))
	}

	var b strings.Builder
	b.WriteString(Title(fmt.Sprintf("Results for %q", result.Query)))
	b.WriteString("\n")

	block := func(name string, results []models.CatalogResult) {
		if len(results) == 0 {
			b.WriteString(Warn(name+": no results") + "\n")
			return
		}
		t := newTable("#", name, "Link")
		for i, r := range results {
			t.Row(strconv.Itoa(i), formatter.Truncate(r.Label(), 50), r.Link())
		}
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	block("Spotify", result.Spotify)
	block("YouTube", result.YouTube)
	return b.String()
}

// CommitReport renders the per-playlist statuses of a commit.
func CommitReport(r models.CommitReport) string {
	line := func(service string, s models.CommitStatus, err error) string {
		text := fmt.Sprintf("%-8s %s", service, s)
		if err != nil {
			text += " (" + err.Error() + ")"
		}
		switch s {
		case models.StatusAdded:
			return OK(text)
		case models.StatusFailed:
			return Err(text)
		case models.StatusDuplicate:
			return Warn(text)
		default:
			return Muted(text)
		}
	}
	return line("YouTube", r.YouTube, r.YouTubeError) + "\n" + line("Spotify", r.Spotify, r.SpotifyError)
}
