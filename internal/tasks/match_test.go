package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
	th "github.com/desertthunder/songvote/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"parenthesized suffix", "Artist - Song X (Official Video)", "Artist - Song X"},
		{"bracketed suffix", "Artist - Song X [HD]", "Artist - Song X"},
		{"both", "Artist - Song X (Live) [4K Remaster]", "Artist - Song X"},
		{"annotation in the middle", "Artist (feat. Y) - Song", "Artist - Song"},
		{"nothing to strip", "Plain Title", "Plain Title"},
		{"only annotation", "(Intro)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.input))
		})
	}
}

func TestMatcher(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	ctx := context.Background()

	t.Run("FromSpotify searches YouTube with artist and title", func(t *testing.T) {
		yt := &th.MockCatalog{Results: map[string][]models.CatalogResult{"Artist Song X": {ytResult("v1", "Song X"), ytResult("v2", "other")}}}
		m := NewMatcher(yt, nil, time.Second, logger)

		got := m.FromSpotify(ctx, spResult("t1", "Artist", "Song X"))

		require.NotNil(t, got)
		assert.Equal(t, "v1", got.ExternalID)
		assert.Equal(t, []string{"Artist Song X"}, yt.Queries)
	})

	t.Run("FromYouTube searches Spotify with the cleaned title", func(t *testing.T) {
		sp := &th.MockCatalog{Results: map[string][]models.CatalogResult{"Artist - Song X": {spResult("t1", "Artist", "Song X")}}}
		m := NewMatcher(nil, sp, time.Second, logger)

		got := m.FromYouTube(ctx, ytResult("v1", "Artist - Song X (Official Video)"))

		require.NotNil(t, got)
		assert.Equal(t, "spotify:track:t1", got.URI)
		assert.Equal(t, []string{"Artist - Song X"}, sp.Queries)
	})

	t.Run("search failure is absent", func(t *testing.T) {
		sp := &th.MockCatalog{SearchErr: errors.New("boom")}
		m := NewMatcher(nil, sp, time.Second, logger)
		assert.Nil(t, m.FromYouTube(ctx, ytResult("v1", "x")))
	})

	t.Run("no hits is absent", func(t *testing.T) {
		yt := &th.MockCatalog{}
		m := NewMatcher(yt, nil, time.Second, logger)
		assert.Nil(t, m.FromSpotify(ctx, spResult("t1", "A", "B")))
	})

	t.Run("Resolve", func(t *testing.T) {
		req := models.PendingRequest{
			YouTube: []models.CatalogResult{ytResult("v1", "Song X (Lyrics)")},
			Spotify: []models.CatalogResult{spResult("t1", "Artist", "Song X"), spResult("t2", "Artist", "Song Y")},
		}
		yt := &th.MockCatalog{Results: map[string][]models.CatalogResult{"*": {ytResult("vm", "match")}}}
		sp := &th.MockCatalog{Results: map[string][]models.CatalogResult{"*": {spResult("tm", "M", "match")}}}
		m := NewMatcher(yt, sp, time.Second, logger)

		t.Run("spotify pick", func(t *testing.T) {
			sel, err := m.Resolve(ctx, req, models.CatalogSpotify, 1)
			require.NoError(t, err)
			assert.Equal(t, "Artist - Song Y", sel.Title)
			assert.Equal(t, "t2", sel.Spotify.ExternalID)
			require.NotNil(t, sel.YouTube)
			assert.Equal(t, "vm", sel.YouTube.ExternalID)
			assert.Equal(t, models.CatalogSpotify, sel.Source)
		})

		t.Run("youtube pick keeps the raw title", func(t *testing.T) {
			sel, err := m.Resolve(ctx, req, models.CatalogYouTube, 0)
			require.NoError(t, err)
			assert.Equal(t, "Song X (Lyrics)", sel.Title)
			require.NotNil(t, sel.Spotify)
			assert.Equal(t, "tm", sel.Spotify.ExternalID)
		})

		t.Run("out of range index is stale", func(t *testing.T) {
			_, err := m.Resolve(ctx, req, models.CatalogYouTube, 3)
			assert.ErrorIs(t, err, shared.ErrStaleRequest)
			_, err = m.Resolve(ctx, req, models.CatalogSpotify, -1)
			assert.ErrorIs(t, err, shared.ErrStaleRequest)
		})
	})

	t.Run("CoverURL", func(t *testing.T) {
		withArt := spResult("t1", "A", "B")
		withArt.ArtworkURL = "https://i.scdn.co/cover.jpg"
		video := ytResult("v1", "x")

		assert.Equal(t, "https://i.scdn.co/cover.jpg", Selection{Spotify: &withArt, YouTube: &video}.CoverURL())
		assert.Equal(t, "https://img.youtube.com/vi/v1/hqdefault.jpg", Selection{YouTube: &video}.CoverURL())
		assert.Equal(t, "", Selection{}.CoverURL())
	})
}
