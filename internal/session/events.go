package session

import (
	"time"

	"github.com/lorenzotomasdiez/agora/internal/debate"
)

// EventKind names a session notification.
type EventKind string

const (
	Joined          EventKind = "joined"
	SideRestored    EventKind = "side-restored"
	DeadlineExpired EventKind = "deadline-expired"
	DeadlineCleared EventKind = "deadline-cleared"
	DebateClosed    EventKind = "debate-closed"
	Refreshed       EventKind = "refreshed"
	RefreshFailed   EventKind = "refresh-failed"
	ArgumentPosted  EventKind = "argument-posted"
	ArgumentUpdated EventKind = "argument-updated"
	ArgumentDeleted EventKind = "argument-deleted"
	VoteCast        EventKind = "vote-cast"
	SummaryReady    EventKind = "summary-ready"
)

// Event is delivered to the OnEvent callback after the state change it
// describes has been applied. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	At         time.Time
	Side       debate.Side
	ArgumentID string
	Vote       debate.VoteType
	Winner     debate.Winner
	Text       string
	Err        error
}
