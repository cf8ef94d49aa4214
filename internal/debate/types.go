// Package debate holds the debate domain model and the pure rules of its
// lifecycle: the clock, the tally, the vote state machine and the edit window.
package debate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
)

// Side is one of the two mutually exclusive debate positions.
type Side string

const (
	Support Side = "support"
	Oppose  Side = "oppose"
)

// Valid reports whether s is support or oppose.
func (s Side) Valid() bool { return s == Support || s == Oppose }

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == Support {
		return Oppose
	}
	return Support
}

// ParseSide accepts "support"/"oppose" in any case, plus "for"/"against".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "support", "for", "pro":
		return Support, nil
	case "oppose", "against", "con":
		return Oppose, nil
	}
	return "", apperr.New(apperr.Validation, "side", fmt.Sprintf("unknown side %q (want support or oppose)", s))
}

// VoteType is a viewer's vote on one argument. The zero value means no vote.
type VoteType string

const (
	NoVote   VoteType = ""
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

// ParseVote accepts "up"/"upvote" and "down"/"downvote".
func ParseVote(s string) (VoteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "upvote", "+":
		return Upvote, nil
	case "down", "downvote", "-":
		return Downvote, nil
	}
	return NoVote, apperr.New(apperr.Validation, "vote", fmt.Sprintf("unknown vote %q (want up or down)", s))
}

// UserRef identifies an author or creator. The API sends either a bare id
// string or an embedded {id,name,avatarUrl} object.
type UserRef struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (u *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = UserRef(p.plain)
	if u.ID == "" {
		u.ID = p.MongoID
	}
	return nil
}

// DisplayName returns the name, or "Unknown" when the reference is bare.
func (u UserRef) DisplayName() string {
	if u.Name == "" {
		return "Unknown"
	}
	return u.Name
}

// Debate is a timed topic. Its open/closed status is derived from CreatedAt
// and Duration, never stored.
type Debate struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Creator     UserRef   `json:"creatorId"`
	Duration    int64     `json:"duration"` // seconds
	CreatedAt   time.Time `json:"createdAt"`
}

// EndTime is CreatedAt + Duration.
func (d *Debate) EndTime() time.Time {
	return d.CreatedAt.Add(time.Duration(d.Duration) * time.Second)
}

// Argument is one post on one side of a debate.
type Argument struct {
	ID         string    `json:"id"`
	DebateID   string    `json:"debateId"`
	Author     UserRef   `json:"authorId"`
	Side       Side      `json:"side"`
	Text       string    `json:"text"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	ViewerVote VoteType  `json:"userVote,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Net is upvotes minus downvotes.
func (a Argument) Net() int { return a.Upvotes - a.Downvotes }

// User is a participant profile as returned by the users endpoints.
type User struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email,omitempty"`
	AvatarURL           string `json:"avatarUrl,omitempty"`
	DebatesParticipated int    `json:"debatesParticipated"`
	TotalVotes          int    `json:"totalVotes"`
}

// Period selects the leaderboard window.
type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	AllTime Period = "all-time"
)

// ParsePeriod validates a leaderboard period. Empty means all-time.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return AllTime, nil
	case Weekly, Monthly, AllTime:
		return p, nil
	}
	return "", apperr.New(apperr.Validation, "period", fmt.Sprintf("unknown period %q (want weekly, monthly or all-time)", s))
}

var objectIDRe = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidID reports whether id has the 24-character hexadecimal shape the
// remote service uses.
func ValidID(id string) bool { return objectIDRe.MatchString(id) }

// CheckID returns a Validation error naming what when id is malformed.
func CheckID(what, id string) error {
	if !ValidID(id) {
		return apperr.New(apperr.Validation, what, fmt.Sprintf("invalid id %q", id))
	}
	return nil
}
