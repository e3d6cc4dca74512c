package models

import "testing"

func TestCatalog(t *testing.T) {
	t.Run("code round trip", func(t *testing.T) {
		for _, c := range []Catalog{CatalogYouTube, CatalogSpotify} {
			parsed, err := ParseCatalog(c.Code())
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", c, err)
			}
			if parsed != c {
				t.Errorf("expected %s, got %s", c, parsed)
			}
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		if _, err := ParseCatalog("XX"); err == nil {
			t.Error("expected error for unknown code")
		}
	})
}

func TestCatalogResult(t *testing.T) {
	t.Run("Label", func(t *testing.T) {
		r := CatalogResult{Title: "Song X", Artist: "Artist"}
		if got := r.Label(); got != "Artist - Song X" {
			t.Errorf("unexpected label %q", got)
		}
		r.Artist = ""
		if got := r.Label(); got != "Song X" {
			t.Errorf("unexpected label %q", got)
		}
	})

	t.Run("Link", func(t *testing.T) {
		yt := CatalogResult{Catalog: CatalogYouTube, ExternalID: "abc"}
		if yt.Link() != "https://youtu.be/abc" {
			t.Errorf("unexpected youtube link %q", yt.Link())
		}
		sp := CatalogResult{Catalog: CatalogSpotify, ExternalID: "123"}
		if sp.Link() != "https://open.spotify.com/track/123" {
			t.Errorf("unexpected spotify link %q", sp.Link())
		}
	})
}

func TestScoreRecordWinRate(t *testing.T) {
	tc := []struct {
		name     string
		accepted int
		rejected int
		want     int
	}{
		{name: "no history", want: 0},
		{name: "all accepted", accepted: 4, want: 100},
		{name: "rounds half up", accepted: 1, rejected: 2, want: 33},
		{name: "two thirds", accepted: 2, rejected: 1, want: 67},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreRecord{AcceptedCount: tt.accepted, RejectedCount: tt.rejected}
			if got := s.WinRate(); got != tt.want {
				t.Errorf("WinRate() = %d, want %d", got, tt.want)
			}
		})
	}
}
