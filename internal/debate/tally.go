package debate

// Winner is the outcome of a debate.
type Winner string

const (
	// Undecided is the outcome while the debate is open.
	Undecided     Winner = ""
	WinnerSupport Winner = "support"
	WinnerOppose  Winner = "oppose"
	Tie           Winner = "tie"
)

// Side returns the winning side, or false for a tie or an open debate.
func (w Winner) Side() (Side, bool) {
	switch w {
	case WinnerSupport:
		return Support, true
	case WinnerOppose:
		return Oppose, true
	}
	return "", false
}

// Tally is the net vote score of each side.
type Tally struct {
	Support int `json:"support"`
	Oppose  int `json:"oppose"`
}

// Score sums upvotes minus downvotes across side's arguments.
func Score(args []Argument, side Side) int {
	total := 0
	for _, a := range args {
		if a.Side == side {
			total += a.Net()
		}
	}
	return total
}

// Count tallies both sides.
func Count(args []Argument) Tally {
	return Tally{Support: Score(args, Support), Oppose: Score(args, Oppose)}
}

// Resolve determines the winner. It is Undecided while open.
func Resolve(args []Argument, open bool) Winner {
	if open {
		return Undecided
	}
	t := Count(args)
	switch {
	case t.Support > t.Oppose:
		return WinnerSupport
	case t.Oppose > t.Support:
		return WinnerOppose
	default:
		return Tie
	}
}

// BySide splits arguments into support and oppose, preserving order.
func BySide(args []Argument) (support, oppose []Argument) {
	for _, a := range args {
		switch a.Side {
		case Support:
			support = append(support, a)
		case Oppose:
			oppose = append(oppose, a)
		}
	}
	return support, oppose
}
