// Package output renders debates for the terminal and writes report files.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/session"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiDim     = "\033[2m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	AnsiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
)

// Colorize wraps s with an ANSI color code and reset.
func Colorize(color, s string) string { return color + s + ansiReset }

// Bold wraps s with ANSI bold and reset.
func Bold(s string) string { return ansiBold + s + ansiReset }

// Success renders a confirmation in green.
func Success(s string) string { return Colorize(ansiGreen, s) }

func sideColor(s debate.Side) string {
	if s == debate.Support {
		return ansiGreen
	}
	return ansiRed
}

// SideLabel renders a side in its color.
func SideLabel(s debate.Side) string {
	if !s.Valid() {
		return Colorize(ansiDim, "none")
	}
	return Colorize(ansiBold+sideColor(s), strings.ToUpper(string(s)))
}

func ago(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// PrintDebates prints one line per debate with its status.
func PrintDebates(w io.Writer, debates []debate.Debate, now time.Time) {
	if len(debates) == 0 {
		fmt.Fprintln(w, Colorize(ansiDim, "No debates found."))
		return
	}
	for i := range debates {
		d := &debates[i]
		status := Colorize(ansiGreen, "open")
		if !debate.IsOpen(d, now) {
			status = Colorize(ansiDim, "closed")
		}
		fmt.Fprintf(w, "%s  %s  %s [%s] %s\n",
			Colorize(ansiDim, d.ID), status, Bold(d.Title), d.Category,
			Colorize(ansiDim, "created "+ago(d.CreatedAt, now)))
	}
}

// PrintSnapshot prints the debate header, countdowns and both argument
// columns.
func PrintSnapshot(w io.Writer, snap session.Snapshot) {
	d := snap.Debate
	fmt.Fprintf(w, "\n%s\n", Colorize(ansiBold+ansiCyan, "=== "+d.Title+" ==="))
	if d.Description != "" {
		fmt.Fprintln(w, d.Description)
	}
	fmt.Fprintf(w, "Category: %s | Created by %s %s\n", d.Category, d.Creator.DisplayName(), ago(d.CreatedAt, snap.At))
	if snap.Open {
		fmt.Fprintln(w, Colorize(ansiYellow, debate.FormatRemaining(snap.Remaining)))
	} else {
		fmt.Fprintln(w, Colorize(ansiDim, debate.FormatRemaining(0)))
	}
	fmt.Fprintf(w, "Your side: %s\n", SideLabel(snap.Side))
	if snap.DeadlineActive {
		fmt.Fprintf(w, "Reply deadline: %s\n", Colorize(ansiYellow, snap.DeadlineShown))
	}

	support, oppose := debate.BySide(snap.Arguments)
	printColumn(w, debate.Support, snap.Tally.Support, support, snap.At)
	printColumn(w, debate.Oppose, snap.Tally.Oppose, oppose, snap.At)

	if !snap.Open {
		PrintWinner(w, snap.Winner, snap.Tally)
		if snap.Summary != "" {
			fmt.Fprintf(w, "\n%s\n%s\n", Bold("Summary"), snap.Summary)
		}
	}
}

// StatusLine is the one-line countdown redrawn between polls.
func StatusLine(snap session.Snapshot) string {
	line := debate.FormatRemaining(snap.Remaining)
	if !snap.Open {
		line = debate.FormatRemaining(0)
	}
	if snap.DeadlineActive {
		line += " | reply deadline " + snap.DeadlineShown
	}
	return line
}

// PrintStatus overwrites the current terminal line with StatusLine.
func PrintStatus(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "\r%s\033[K", StatusLine(snap))
}

func printColumn(w io.Writer, side debate.Side, score int, args []debate.Argument, now time.Time) {
	fmt.Fprintf(w, "\n%s %s\n", SideLabel(side), Colorize(ansiDim, fmt.Sprintf("(score %d, %d arguments)", score, len(args))))
	if len(args) == 0 {
		fmt.Fprintln(w, Colorize(ansiDim, "  no arguments yet"))
		return
	}
	for _, a := range args {
		PrintArgument(w, a, now)
	}
}

// PrintArgument prints one argument with its votes. The viewer's own vote
// is highlighted.
func PrintArgument(w io.Writer, a debate.Argument, now time.Time) {
	up := fmt.Sprintf("+%d", a.Upvotes)
	down := fmt.Sprintf("-%d", a.Downvotes)
	switch a.ViewerVote {
	case debate.Upvote:
		up = Colorize(ansiBold+ansiGreen, up)
	case debate.Downvote:
		down = Colorize(ansiBold+ansiRed, down)
	}
	edited := ""
	if a.UpdatedAt.After(a.CreatedAt) {
		edited = " (edited)"
	}
	fmt.Fprintf(w, "  %s %s %s: %s\n    %s %s  %s%s\n",
		Colorize(ansiDim, a.ID), Bold(a.Author.DisplayName()),
		Colorize(ansiDim, ago(a.CreatedAt, now)), a.Text,
		up, down, Colorize(ansiDim, fmt.Sprintf("net %d", a.Net())), edited)
}

// PrintWinner prints the closing banner.
func PrintWinner(w io.Writer, winner debate.Winner, t debate.Tally) {
	score := fmt.Sprintf("support %d : %d oppose", t.Support, t.Oppose)
	switch winner {
	case debate.Undecided:
		fmt.Fprintf(w, "\n%s %s\n", Colorize(ansiYellow, "In progress:"), score)
	case debate.Tie:
		fmt.Fprintf(w, "\n%s %s\n", Colorize(ansiBold+ansiYellow, "=== It's a tie ==="), score)
	default:
		side, _ := winner.Side()
		fmt.Fprintf(w, "\n%s %s\n", Colorize(ansiBold+sideColor(side), "=== Winner: "+strings.ToUpper(string(side))+" ==="), score)
	}
}

// PrintLeaderboard prints ranked users.
func PrintLeaderboard(w io.Writer, period debate.Period, users []debate.User) {
	fmt.Fprintf(w, "%s\n", Colorize(ansiBold+ansiCyan, "=== Leaderboard ("+string(period)+") ==="))
	if len(users) == 0 {
		fmt.Fprintln(w, Colorize(ansiDim, "No participants yet."))
		return
	}
	for i, u := range users {
		fmt.Fprintf(w, "%3d. %-24s %s votes  %s debates\n",
			i+1, Bold(u.Name), humanize.Comma(int64(u.TotalVotes)), humanize.Comma(int64(u.DebatesParticipated)))
	}
}

// PrintUser prints a profile.
func PrintUser(w io.Writer, u debate.User) {
	fmt.Fprintf(w, "%s (%s)\n", Bold(u.Name), u.ID)
	if u.Email != "" {
		fmt.Fprintf(w, "Email: %s\n", u.Email)
	}
	fmt.Fprintf(w, "Debates: %s | Votes received: %s\n",
		humanize.Comma(int64(u.DebatesParticipated)), humanize.Comma(int64(u.TotalVotes)))
}

// EventLine describes a session event in one line without color, for logs.
func EventLine(e session.Event) string {
	switch e.Kind {
	case session.Joined:
		return fmt.Sprintf("joined %s", e.Side)
	case session.SideRestored:
		return fmt.Sprintf("side %s restored from %s", e.Side, e.Text)
	case session.DeadlineExpired:
		return "reply deadline expired"
	case session.DeadlineCleared:
		return "reply deadline cleared"
	case session.DebateClosed:
		return fmt.Sprintf("debate closed, outcome %s", outcome(e.Winner))
	case session.Refreshed:
		return "arguments refreshed"
	case session.RefreshFailed:
		return fmt.Sprintf("refresh failed: %v", e.Err)
	case session.ArgumentPosted:
		return fmt.Sprintf("argument %s posted for %s", e.ArgumentID, e.Side)
	case session.ArgumentUpdated:
		return fmt.Sprintf("argument %s edited", e.ArgumentID)
	case session.ArgumentDeleted:
		return fmt.Sprintf("argument %s deleted", e.ArgumentID)
	case session.VoteCast:
		return fmt.Sprintf("%s on %s", e.Vote, e.ArgumentID)
	case session.SummaryReady:
		return "summary ready"
	}
	return string(e.Kind)
}

func outcome(w debate.Winner) string {
	if w == debate.Undecided {
		return "undecided"
	}
	return string(w)
}

// PrintEvent prints a colored notice for events a participant should see.
// Routine refreshes are silent.
func PrintEvent(w io.Writer, e session.Event) {
	stamp := Colorize(ansiDim, e.At.Format("15:04:05"))
	switch e.Kind {
	case session.Refreshed:
		return
	case session.DeadlineExpired:
		fmt.Fprintf(w, "%s %s\n", stamp, Colorize(ansiBold+ansiRed, "Your reply deadline has passed. You can still post."))
	case session.RefreshFailed:
		fmt.Fprintf(w, "%s %s\n", stamp, Colorize(ansiYellow, EventLine(e)))
	case session.DebateClosed:
		fmt.Fprintf(w, "%s %s\n", stamp, Colorize(ansiBold+AnsiMagenta, "Debate has ended."))
	case session.Joined, session.SideRestored:
		fmt.Fprintf(w, "%s %s %s\n", stamp, Colorize(ansiCyan, EventLine(e)), SideLabel(e.Side))
	default:
		fmt.Fprintf(w, "%s %s\n", stamp, EventLine(e))
	}
}
