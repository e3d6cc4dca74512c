package tasks

import (
	"fmt"

	"github.com/desertthunder/songvote/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ScanPlaylist Phase = iota
	InsertYouTube
	InsertSpotify
	CommitDone
)

func (p Phase) String() string {
	switch p {
	case ScanPlaylist:
		return "scan_playlist"
	case InsertYouTube:
		return "insert_youtube"
	case InsertSpotify:
		return "insert_spotify"
	case CommitDone:
		return "commit_done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func scanPageUpdate(page, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanPlaylist,
		Step:    page,
		Message: fmt.Sprintf("Scanned YouTube playlist page %d (%d items)", page, tracks),
		Data:    tracks,
	}
}

func insertUpdate(phase Phase, ref string) ProgressUpdate {
	service := models.CatalogYouTube
	if phase == InsertSpotify {
		service = models.CatalogSpotify
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %s to the %s playlist...", ref, service),
	}
}

func commitDoneUpdate(report models.CommitReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CommitDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("YouTube: %s, Spotify: %s", report.YouTube, report.Spotify),
		Data:    report,
	}
}
