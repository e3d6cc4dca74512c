package bot

import (
	"github.com/desertthunder/songvote/internal/formatter"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/services"
	"github.com/desertthunder/songvote/internal/tasks"
)

// Header row labels.
const (
	SpotifyHeader = "🟢 --- FROM SPOTIFY ---"
	YouTubeHeader = "📹 --- FROM YOUTUBE ---"
	CancelLabel   = "❌ Cancel"
)

// SearchKeyboard lays out one row per result: Spotify block, YouTube block, then cancel.
//
// A catalog with no results gets no header.
func SearchKeyboard(token string, result tasks.SearchResult) services.Keyboard {
	var kb services.Keyboard

	addBlock := func(header string, c models.Catalog, results []models.CatalogResult) {
		if len(results) == 0 {
			return
		}
		kb = append(kb, []services.Button{{Text: header, CallbackData: NoopData}})
		for i, r := range results {
			kb = append(kb, []services.Button{{Text: formatter.ResultLabel(r), CallbackData: SelectData(c, token, i)}})
		}
	}

	addBlock(SpotifyHeader, models.CatalogSpotify, result.Spotify)
	addBlock(YouTubeHeader, models.CatalogYouTube, result.YouTube)
	kb = append(kb, []services.Button{{Text: CancelLabel, CallbackData: CancelData(token)}})
	return kb
}
