package debate

// Delta is the change to an argument's counts caused by one vote action.
type Delta struct {
	Up   int
	Down int
}

// ApplyVote is the per-(argument, voter) state machine. Casting the vote the
// voter already holds toggles it off; casting the other vote moves the
// voter's single vote from one bucket to the other.
func ApplyVote(current, cast VoteType) (VoteType, Delta) {
	switch {
	case current == cast:
		if cast == Upvote {
			return NoVote, Delta{Up: -1}
		}
		return NoVote, Delta{Down: -1}
	case cast == Upvote && current == Downvote:
		return Upvote, Delta{Up: 1, Down: -1}
	case cast == Downvote && current == Upvote:
		return Downvote, Delta{Up: -1, Down: 1}
	case cast == Upvote:
		return Upvote, Delta{Up: 1}
	default:
		return Downvote, Delta{Down: 1}
	}
}

// WithVote returns a copy of a with cast applied for the viewer.
func (a Argument) WithVote(cast VoteType) Argument {
	next, d := ApplyVote(a.ViewerVote, cast)
	a.ViewerVote = next
	a.Upvotes += d.Up
	a.Downvotes += d.Down
	return a
}
