package polls

import "github.com/desertthunder/songvote/internal/models"

// State is the lifecycle stage of a poll.
type State int

const (
	StateCreated State = iota
	StateActive
	StateResolvedWin
	StateResolvedLoss
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateResolvedWin:
		return "resolved_win"
	case StateResolvedLoss:
		return "resolved_loss"
	default:
		return "unknown"
	}
}

// Resolved reports whether s is terminal.
func (s State) Resolved() bool {
	return s == StateResolvedWin || s == StateResolvedLoss
}

// Outcome is the result of applying one ballot.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "none"
	}
}

// Poll options, in the order they are posted.
const (
	OptionYes = 0
	OptionNo  = 1
)

// Ballot is one voter's answer. An empty Options slice is a retraction.
type Ballot struct {
	PollID  string
	VoterID int64
	Options []int
}

// Poll is a tracked poll with its lifecycle state.
type Poll struct {
	models.Poll
	State State
}

// RequiredVotes is the quorum for a chat of groupSize members: max(1, ceil(groupSize/2)).
func RequiredVotes(groupSize int) int {
	required := (groupSize + 1) / 2
	if required < 1 {
		return 1
	}
	return required
}

// Apply counts ballot against p and reports whether it resolved the poll.
//
// Only active polls change. YES reaching quorum wins before NO is considered.
func Apply(p Poll, ballot Ballot) (Poll, Outcome) {
	if p.State != StateActive || len(ballot.Options) == 0 {
		return p, OutcomeNone
	}

	switch ballot.Options[0] {
	case OptionYes:
		p.YesVotes++
	case OptionNo:
		p.NoVotes++
	default:
		return p, OutcomeNone
	}

	switch {
	case p.YesVotes >= p.RequiredVotes:
		p.State = StateResolvedWin
		return p, OutcomeWin
	case p.NoVotes >= p.RequiredVotes:
		p.State = StateResolvedLoss
		return p, OutcomeLoss
	}
	return p, OutcomeNone
}
