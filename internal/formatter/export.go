package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songvote/internal/models"
)

// Format is an export format for ledger history.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts csv, md/markdown, and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "", "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want csv, markdown, or text)", s)
	}
}

func outcomeString(won bool) string {
	if won {
		return "win"
	}
	return "loss"
}

// HistoryToCSV renders nominations with columns: PollID, Proposer, Title, Outcome, Yes, No, Required, YouTube, Spotify, ResolvedAt
func HistoryToCSV(nominations []models.Nomination) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"PollID", "Proposer", "Title", "Outcome", "Yes", "No", "Required", "YouTube", "Spotify", "ResolvedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, n := range nominations {
		record := []string{
			n.PollID,
			n.ProposerName,
			n.Title,
			outcomeString(n.Won),
			strconv.Itoa(n.YesVotes),
			strconv.Itoa(n.NoVotes),
			strconv.Itoa(n.RequiredVotes),
			string(n.YouTubeStatus),
			string(n.SpotifyStatus),
			n.ResolvedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown renders nominations as a Markdown list under a heading.
func HistoryToMarkdown(nominations []models.Nomination, heading string) ([]byte, error) {
	var buf bytes.Buffer

	if heading == "" {
		heading = "Nomination history"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", heading))
	buf.WriteString(fmt.Sprintf("**Nominations**: %d\n\n", len(nominations)))

	for i, n := range nominations {
		mark := "❌"
		if n.Won {
			mark = "✅"
		}
		buf.WriteString(fmt.Sprintf("%d. %s **%s** by %s (%d/%d yes, %d no) [YouTube: %s, Spotify: %s]\n",
			i+1, mark, n.Title, n.ProposerName, n.YesVotes, n.RequiredVotes, n.NoVotes, n.YouTubeStatus, n.SpotifyStatus))
	}

	return buf.Bytes(), nil
}

// HistoryToText renders nominations as plain text, one per line.
func HistoryToText(nominations []models.Nomination) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Nominations: %d\n\n", len(nominations)))
	for i, n := range nominations {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s (%s)\n",
			i+1, outcomeString(n.Won), n.Title, n.ProposerName, n.ResolvedAt.UTC().Format("2006-01-02 15:04")))
	}

	return buf.Bytes(), nil
}

// RenderHistory dispatches to the exporter for format.
func RenderHistory(nominations []models.Nomination, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return HistoryToCSV(nominations)
	case FormatMarkdown:
		return HistoryToMarkdown(nominations, "")
	default:
		return HistoryToText(nominations)
	}
}

// WriteHistoryExport renders nominations and writes them to path.
//
// Defaults to nominations.{csv,md,txt} in the working directory.
func WriteHistoryExport(nominations []models.Nomination, format Format, path string) (string, error) {
	if path == "" {
		ext := map[Format]string{FormatCSV: "csv", FormatMarkdown: "md", FormatText: "txt"}[format]
		if ext == "" {
			ext = "txt"
		}
		path = "nominations." + ext
	}

	data, err := RenderHistory(nominations, format)
	if err != nil {
		return "", fmt.Errorf("failed to render history: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
