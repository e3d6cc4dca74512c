package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
)

// ScoreRepository persists [models.ScoreRecord] rows and resolved nominations.
type ScoreRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewScoreRepository creates a new [ScoreRepository] with the given database connection
func NewScoreRepository(db *sql.DB) *ScoreRepository {
	return &ScoreRepository{db: db, now: time.Now}
}

// ApplyOutcome credits userID with a win or a loss and stores displayName as the current name.
func (r *ScoreRepository) ApplyOutcome(ctx context.Context, userID int64, displayName string, won bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.applyDelta(ctx, tx, userID, displayName, won); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit score: %w", err)
	}
	return nil
}

// RecordResolution stores the nomination and applies the proposer's delta in one transaction.
//
// Returns [shared.ErrAlreadyResolved] without changing anything if the poll was already recorded.
func (r *ScoreRepository) RecordResolution(ctx context.Context, res models.Resolution) error {
	if res.PollID == "" {
		return fmt.Errorf("%w: empty poll id", shared.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	outcome := "loss"
	if res.Won {
		outcome = "win"
	}

	query := `
		INSERT INTO nominations (
			id, poll_id, chat_id, proposer_id, title, youtube_id, spotify_uri,
			yes_votes, no_votes, required_votes, outcome, youtube_status, spotify_status, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(poll_id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query,
		shared.GenerateID(), res.PollID, res.ChatID, res.ProposerID, res.Title, res.YouTubeID, res.SpotifyURI,
		res.YesVotes, res.NoVotes, res.RequiredVotes, outcome,
		statusOrSkipped(res.Report.YouTube), statusOrSkipped(res.Report.Spotify), r.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert nomination: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: poll %s", shared.ErrAlreadyResolved, res.PollID)
	}

	if err := r.applyDelta(ctx, tx, res.ProposerID, res.ProposerName, res.Won); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resolution: %w", err)
	}
	return nil
}

func (r *ScoreRepository) applyDelta(ctx context.Context, tx *sql.Tx, userID int64, displayName string, won bool) error {
	now := r.now()

	insert := `
		INSERT INTO scores (user_id, display_name, reputation, accepted_count, rejected_count, created_at, updated_at)
		VALUES (?, ?, 0, 0, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, userID, displayName, now, now); err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}

	points, accepted, rejected := models.LossPoints, 0, 1
	if won {
		points, accepted, rejected = models.WinPoints, 1, 0
	}

	update := `
		UPDATE scores
		SET display_name = ?,
			reputation = reputation + ?,
			accepted_count = accepted_count + ?,
			rejected_count = rejected_count + ?,
			updated_at = ?
		WHERE user_id = ?
	`
	if _, err := tx.ExecContext(ctx, update, displayName, points, accepted, rejected, now, userID); err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

// Get retrieves a user's score row.
func (r *ScoreRepository) Get(ctx context.Context, userID int64) (*models.ScoreRecord, error) {
	query := `
		SELECT user_id, display_name, reputation, accepted_count, rejected_count, updated_at
		FROM scores
		WHERE user_id = ?
	`

	var s models.ScoreRecord
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.DisplayName, &s.Reputation, &s.AcceptedCount, &s.RejectedCount, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query score: %w", err)
	}
	return &s, nil
}

// Top returns up to n rows ordered by reputation, then accepted count.
func (r *ScoreRepository) Top(ctx context.Context, n int) ([]models.ScoreRecord, error) {
	if n <= 0 {
		n = 10
	}

	query := `
		SELECT user_id, display_name, reputation, accepted_count, rejected_count, updated_at
		FROM scores
		ORDER BY reputation DESC, accepted_count DESC, user_id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var s models.ScoreRecord
		if err := rows.Scan(&s.UserID, &s.DisplayName, &s.Reputation, &s.AcceptedCount, &s.RejectedCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		records = append(records, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}
	return records, nil
}

// History returns the most recent resolved nominations, newest first.
//
// A non-zero proposerID restricts the list to that user.
func (r *ScoreRepository) History(ctx context.Context, proposerID int64, limit int) ([]models.Nomination, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT n.id, n.poll_id, n.chat_id, n.proposer_id, COALESCE(s.display_name, ''), n.title,
			n.youtube_id, n.spotify_uri, n.yes_votes, n.no_votes, n.required_votes, n.outcome,
			n.youtube_status, n.spotify_status, n.resolved_at
		FROM nominations n
		LEFT JOIN scores s ON s.user_id = n.proposer_id
		WHERE ? = 0 OR n.proposer_id = ?
		ORDER BY n.resolved_at DESC, n.rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, proposerID, proposerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var nominations []models.Nomination
	for rows.Next() {
		var (
			n             models.Nomination
			outcome       string
			youtubeStatus string
			spotifyStatus string
		)
		err := rows.Scan(
			&n.ID, &n.PollID, &n.ChatID, &n.ProposerID, &n.ProposerName, &n.Title,
			&n.YouTubeID, &n.SpotifyURI, &n.YesVotes, &n.NoVotes, &n.RequiredVotes, &outcome,
			&youtubeStatus, &spotifyStatus, &n.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination: %w", err)
		}
		n.Won = outcome == "win"
		n.YouTubeStatus = models.CommitStatus(youtubeStatus)
		n.SpotifyStatus = models.CommitStatus(spotifyStatus)
		nominations = append(nominations, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return nominations, nil
}

func statusOrSkipped(s models.CommitStatus) string {
	if s == "" {
		return string(models.StatusSkipped)
	}
	return string(s)
}
