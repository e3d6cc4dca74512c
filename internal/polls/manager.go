package polls

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
)

// Default poll wording.
const (
	DefaultQuestion = "Hit or flop? 🎧"
	DefaultYes      = "🔥 Hit"
	DefaultNo       = "🗑️ Flop"
)

// Ballots for a poll id the manager has not registered yet are held this long,
// up to maxHeldBallots per poll, and replayed in arrival order when Open registers it.
const (
	HeldBallotWindow = 30 * time.Second
	maxHeldBallots   = 256
)

// Transport is the chat surface needed to run a poll.
type Transport interface {
	MemberCount(ctx context.Context, chatID int64) (int, error)
	SendPoll(ctx context.Context, chatID int64, question string, options []string, replyTo int64) (int64, string, error)
	StopPoll(ctx context.Context, chatID, messageID int64) error
}

// Committer adds an approved track to the playlists.
type Committer interface {
	Commit(ctx context.Context, videoID, trackURI string) models.CommitReport
}

// Ledger records the outcome against the proposer.
type Ledger interface {
	RecordResolution(ctx context.Context, res models.Resolution) error
}

// Announcer tells the chat how a poll ended.
type Announcer interface {
	Announce(ctx context.Context, res models.Resolution)
}

// Nomination is a track put up for a vote.
type Nomination struct {
	ChatID       int64
	ReplyTo      int64
	ProposerID   int64
	ProposerName string
	Title        string
	YouTube      *models.CatalogResult
	Spotify      *models.CatalogResult
}

type livePoll struct {
	poll   Poll
	voters map[int64]struct{}
}

type heldBallot struct {
	ballot Ballot
	at     time.Time
}

// Manager owns the set of live polls.
type Manager struct {
	mu    sync.Mutex
	polls map[string]*livePoll
	held  map[string][]heldBallot

	transport Transport
	committer Committer
	ledger    Ledger
	announcer Announcer
	logger    *log.Logger
	now       func() time.Time

	question string
	options  []string
}

// Option configures a [Manager].
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithWording replaces the poll question and the YES/NO option labels.
func WithWording(question, yes, no string) Option {
	return func(m *Manager) {
		m.question = question
		m.options = []string{yes, no}
	}
}

// NewManager creates a manager. committer, ledger, and announcer may be nil.
func NewManager(transport Transport, committer Committer, ledger Ledger, announcer Announcer, logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	m := &Manager{
		polls:     make(map[string]*livePoll),
		held:      make(map[string][]heldBallot),
		transport: transport,
		committer: committer,
		ledger:    ledger,
		announcer: announcer,
		logger:    shared.WithLogger(logger, "component", "polls"),
		now:       time.Now,
		question:  DefaultQuestion,
		options:   []string{DefaultYes, DefaultNo},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open posts a poll for n and tracks it as active.
//
// The quorum is computed from the chat's member count at this moment and never recomputed.
func (m *Manager) Open(ctx context.Context, n Nomination) (models.Poll, error) {
	members, err := m.transport.MemberCount(ctx, n.ChatID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to read member count: %w", err)
	}

	p := Poll{
		Poll: models.Poll{
			ChatID:        n.ChatID,
			ProposerID:    n.ProposerID,
			ProposerName:  n.ProposerName,
			Title:         n.Title,
			YouTube:       n.YouTube,
			Spotify:       n.Spotify,
			RequiredVotes: RequiredVotes(members),
			CreatedAt:     m.now(),
		},
		State: StateCreated,
	}

	messageID, pollID, err := m.transport.SendPoll(ctx, n.ChatID, m.question, m.options, n.ReplyTo)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to post poll: %w", err)
	}
	p.ID = pollID
	p.MessageID = messageID
	p.State = StateActive

	live := &livePoll{poll: p, voters: make(map[int64]struct{})}
	var resolved Poll
	outcome := OutcomeNone

	m.mu.Lock()
	m.polls[pollID] = live
	for _, b := range m.takeHeldLocked(pollID) {
		if resolved, outcome = m.applyLocked(live, b); outcome != OutcomeNone {
			break
		}
	}
	m.mu.Unlock()

	m.logger.Info("poll opened", "poll_id", pollID, "title", n.Title, "members", members, "required", p.RequiredVotes)
	if outcome != OutcomeNone {
		m.resolve(ctx, resolved, outcome)
	}
	return p.Poll, nil
}

// Cast applies a ballot. Repeat ballots and retractions are ignored. A ballot for a poll id
// that is not live is held for [HeldBallotWindow] in case Open has not registered it yet,
// so ballots for resolved or foreign polls never count.
//
// When the ballot resolves the poll, the resolution effects run before Cast returns.
func (m *Manager) Cast(ctx context.Context, b Ballot) Outcome {
	m.mu.Lock()
	live, ok := m.polls[b.PollID]
	if !ok {
		m.holdLocked(b)
		m.mu.Unlock()
		m.logger.Debug("ballot for unknown poll held", "poll_id", b.PollID, "voter", b.VoterID)
		return OutcomeNone
	}
	next, outcome := m.applyLocked(live, b)
	m.mu.Unlock()

	if outcome != OutcomeNone {
		m.resolve(ctx, next, outcome)
	}
	return outcome
}

// applyLocked counts b against live and unregisters the poll when it resolves.
func (m *Manager) applyLocked(live *livePoll, b Ballot) (Poll, Outcome) {
	if len(b.Options) == 0 {
		return live.poll, OutcomeNone
	}
	if _, voted := live.voters[b.VoterID]; voted {
		m.logger.Debug("repeat ballot ignored", "poll_id", b.PollID, "voter", b.VoterID)
		return live.poll, OutcomeNone
	}
	live.voters[b.VoterID] = struct{}{}

	next, outcome := Apply(live.poll, b)
	live.poll = next
	if outcome != OutcomeNone {
		delete(m.polls, next.ID)
	}
	return next, outcome
}

func (m *Manager) holdLocked(b Ballot) {
	m.pruneHeldLocked()
	if len(m.held[b.PollID]) >= maxHeldBallots {
		return
	}
	m.held[b.PollID] = append(m.held[b.PollID], heldBallot{ballot: b, at: m.now()})
}

func (m *Manager) takeHeldLocked(pollID string) []Ballot {
	m.pruneHeldLocked()
	held := m.held[pollID]
	delete(m.held, pollID)

	ballots := make([]Ballot, 0, len(held))
	for _, h := range held {
		ballots = append(ballots, h.ballot)
	}
	return ballots
}

func (m *Manager) pruneHeldLocked() {
	cutoff := m.now().Add(-HeldBallotWindow)
	for id, held := range m.held {
		keep := held[:0]
		for _, h := range held {
			if h.at.After(cutoff) {
				keep = append(keep, h)
			}
		}
		if len(keep) == 0 {
			delete(m.held, id)
		} else {
			m.held[id] = keep
		}
	}
}

// Held returns the number of ballots waiting for their poll to be registered.
func (m *Manager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneHeldLocked()
	n := 0
	for _, held := range m.held {
		n += len(held)
	}
	return n
}

// Get returns a snapshot of a live poll.
func (m *Manager) Get(pollID string) (Poll, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live, ok := m.polls[pollID]
	if !ok {
		return Poll{}, false
	}
	return live.poll, true
}

// Active returns the number of live polls.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.polls)
}

func (m *Manager) resolve(ctx context.Context, p Poll, outcome Outcome) {
	logger := m.logger.With("poll_id", p.ID, "outcome", outcome)

	if err := m.transport.StopPoll(ctx, p.ChatID, p.MessageID); err != nil {
		logger.Warn("failed to close poll", "error", err)
	}

	res := models.Resolution{
		PollID:        p.ID,
		ChatID:        p.ChatID,
		ProposerID:    p.ProposerID,
		ProposerName:  p.ProposerName,
		Title:         p.Title,
		YesVotes:      p.YesVotes,
		NoVotes:       p.NoVotes,
		RequiredVotes: p.RequiredVotes,
		Won:           outcome == OutcomeWin,
	}
	if p.YouTube != nil {
		res.YouTubeID = p.YouTube.ExternalID
	}
	if p.Spotify != nil {
		res.SpotifyURI = p.Spotify.URI
	}

	if res.Won && m.committer != nil {
		res.Report = m.committer.Commit(ctx, res.YouTubeID, res.SpotifyURI)
	}

	if m.ledger != nil {
		if err := m.ledger.RecordResolution(ctx, res); err != nil {
			if errors.Is(err, shared.ErrAlreadyResolved) {
				logger.Warn("resolution already recorded")
			} else {
				logger.Error("failed to record resolution", "error", err)
			}
		}
	}

	logger.Info("poll resolved", "yes", p.YesVotes, "no", p.NoVotes, "required", p.RequiredVotes)

	if m.announcer != nil {
		m.announcer.Announce(ctx, res)
	}
}
