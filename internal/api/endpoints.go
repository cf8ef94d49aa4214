package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
)

// ListParams filters the debate listing. Zero values are omitted.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Search   string
	Tags     []string
	Active   *bool
	Sort     string
	Order    string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if len(p.Tags) > 0 {
		q.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.Active != nil {
		q.Set("isActive", strconv.FormatBool(*p.Active))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	return q
}

// DebatePage is one page of the debate listing.
type DebatePage struct {
	Debates []debate.Debate `json:"debates"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// ListDebates returns a page of debates.
func (c *Client) ListDebates(ctx context.Context, p ListParams) (DebatePage, error) {
	var page DebatePage
	err := c.do(ctx, "list debates", http.MethodGet, "/debates", p.values(), nil, &page)
	return page, err
}

// GetDebate fetches one debate, consulting the cache first.
func (c *Client) GetDebate(ctx context.Context, id string) (*debate.Debate, error) {
	if err := debate.CheckID("get debate", id); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if d, ok := c.cache.GetDebate(ctx, id); ok {
			c.observeCache(true)
			return d, nil
		}
		c.observeCache(false)
	}

	var raw json.RawMessage
	if err := c.do(ctx, "get debate", http.MethodGet, "/debates/"+id, nil, nil, &raw); err != nil {
		return nil, err
	}
	d, err := decodeDebate("get debate", raw)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.PutDebate(ctx, d)
	}
	return d, nil
}

// forgetMissing drops a cached debate once the server reports it gone.
func (c *Client) forgetMissing(ctx context.Context, debateID string, err error) error {
	if c.cache != nil && errors.Is(err, apperr.ErrNotFound) {
		if ierr := c.cache.Invalidate(ctx, debateID); ierr != nil {
			c.log.Warn().Err(ierr).Msg("cache invalidate failed")
		}
	}
	return err
}

func (c *Client) observeCache(hit bool) {
	if c.metrics != nil {
		c.metrics.ObserveCache(hit)
	}
}

func decodeDebate(op string, raw json.RawMessage) (*debate.Debate, error) {
	if len(raw) == 0 {
		return nil, apperr.New(apperr.NotFound, op, "debate not found")
	}
	var d debate.Debate
	if err := unwrapKey(raw, "debate", &d); err != nil {
		return nil, apperr.Wrap(apperr.Network, op, err)
	}
	if d.ID == "" {
		return nil, apperr.New(apperr.NotFound, op, "debate not found")
	}
	return &d, nil
}

// NewDebate is the body of a create request. Duration is in seconds.
type NewDebate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	Duration    int64    `json:"duration"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// CreateDebate creates a debate and returns it as stored.
func (c *Client) CreateDebate(ctx context.Context, nd NewDebate) (*debate.Debate, error) {
	const op = "create debate"
	switch {
	case strings.TrimSpace(nd.Title) == "":
		return nil, apperr.New(apperr.Validation, op, "title is required")
	case strings.TrimSpace(nd.Category) == "":
		return nil, apperr.New(apperr.Validation, op, "category is required")
	case nd.Duration <= 0:
		return nil, apperr.New(apperr.Validation, op, "duration must be positive")
	}
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodPost, "/debates", nil, nd, &raw); err != nil {
		return nil, err
	}
	d, err := decodeDebate(op, raw)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.PutDebate(ctx, d)
	}
	return d, nil
}

// Categories lists the debate categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	err := c.do(ctx, "categories", http.MethodGet, "/debates/categories", nil, nil, &cats)
	return cats, err
}

type argumentPage struct {
	Arguments []debate.Argument `json:"arguments"`
}

// ListArguments returns a debate's arguments. Authenticated sessions get
// the variant carrying the viewer's votes and fall back to the public
// listing if it fails for any reason other than the credential itself.
func (c *Client) ListArguments(ctx context.Context, debateID string) ([]debate.Argument, error) {
	if err := debate.CheckID("list arguments", debateID); err != nil {
		return nil, err
	}
	if c.session.Authenticated() {
		var page argumentPage
		err := c.do(ctx, "list arguments", http.MethodGet, "/debates/"+debateID+"/arguments/with-votes", nil, nil, &page)
		if err == nil {
			return page.Arguments, nil
		}
		if ctx.Err() != nil || errors.Is(err, apperr.ErrAuthRequired) {
			return nil, err
		}
		c.log.Debug().Err(err).Msg("with-votes listing failed, using public listing")
	}
	var page argumentPage
	if err := c.do(ctx, "list arguments", http.MethodGet, "/debates/"+debateID+"/arguments", nil, nil, &page); err != nil {
		return nil, c.forgetMissing(ctx, debateID, err)
	}
	return page.Arguments, nil
}

// CreateArgument posts text on side.
func (c *Client) CreateArgument(ctx context.Context, debateID string, side debate.Side, text string) (debate.Argument, error) {
	const op = "create argument"
	if err := debate.CheckID(op, debateID); err != nil {
		return debate.Argument{}, err
	}
	if !side.Valid() {
		return debate.Argument{}, apperr.New(apperr.Validation, op, "side must be support or oppose")
	}
	if strings.TrimSpace(text) == "" {
		return debate.Argument{}, apperr.New(apperr.Validation, op, "argument text is empty")
	}
	var raw json.RawMessage
	body := map[string]string{"text": text, "side": string(side)}
	if err := c.do(ctx, op, http.MethodPost, "/debates/"+debateID+"/arguments", nil, body, &raw); err != nil {
		return debate.Argument{}, c.forgetMissing(ctx, debateID, err)
	}
	var a debate.Argument
	if len(raw) > 0 {
		if err := unwrapKey(raw, "argument", &a); err != nil {
			return debate.Argument{}, apperr.Wrap(apperr.Network, op, err)
		}
	}
	return a, nil
}

// UpdateArgument replaces an argument's text.
func (c *Client) UpdateArgument(ctx context.Context, argumentID, text string) error {
	const op = "update argument"
	if err := debate.CheckID(op, argumentID); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return apperr.New(apperr.Validation, op, "argument text is empty")
	}
	return c.do(ctx, op, http.MethodPut, "/arguments/"+argumentID, nil, map[string]string{"text": text}, nil)
}

// DeleteArgument removes an argument.
func (c *Client) DeleteArgument(ctx context.Context, argumentID string) error {
	const op = "delete argument"
	if err := debate.CheckID(op, argumentID); err != nil {
		return err
	}
	return c.do(ctx, op, http.MethodDelete, "/arguments/"+argumentID, nil, nil, nil)
}

// Vote casts an up or down vote. Casting the held vote again withdraws it.
func (c *Client) Vote(ctx context.Context, argumentID string, v debate.VoteType) error {
	const op = "vote"
	if err := debate.CheckID(op, argumentID); err != nil {
		return err
	}
	if v != debate.Upvote && v != debate.Downvote {
		return apperr.New(apperr.Validation, op, "vote must be upvote or downvote")
	}
	return c.do(ctx, op, http.MethodPost, "/arguments/"+argumentID+"/vote", nil, map[string]string{"voteType": string(v)}, nil)
}

// UserSide returns the side the current user holds, or "" for none.
func (c *Client) UserSide(ctx context.Context, debateID string) (debate.Side, error) {
	const op = "user side"
	if err := debate.CheckID(op, debateID); err != nil {
		return "", err
	}
	var out struct {
		Side *debate.Side `json:"side"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/debates/"+debateID+"/user-side", nil, nil, &out); err != nil {
		return "", err
	}
	if out.Side == nil || !out.Side.Valid() {
		return "", nil
	}
	return *out.Side, nil
}

// JoinSide commits the current user to side.
func (c *Client) JoinSide(ctx context.Context, debateID string, side debate.Side) error {
	const op = "join side"
	if err := debate.CheckID(op, debateID); err != nil {
		return err
	}
	if !side.Valid() {
		return apperr.New(apperr.Validation, op, "side must be support or oppose")
	}
	err := c.do(ctx, op, http.MethodPost, "/debates/"+debateID+"/join-side", nil, map[string]string{"side": string(side)}, nil)
	return c.forgetMissing(ctx, debateID, err)
}

// Leaderboard returns the top participants for period.
func (c *Client) Leaderboard(ctx context.Context, period debate.Period, limit int) ([]debate.User, error) {
	if period == "" {
		period = debate.AllTime
	}
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{"period": {string(period)}, "limit": {strconv.Itoa(limit)}}
	var users []debate.User
	err := c.do(ctx, "leaderboard", http.MethodGet, "/users/leaderboard", q, nil, &users)
	return users, err
}

// Me returns the signed-in user's profile and records its id on the session.
func (c *Client) Me(ctx context.Context) (debate.User, error) {
	const op = "me"
	if !c.session.Authenticated() {
		return debate.User{}, apperr.New(apperr.AuthRequired, op, "sign in required")
	}
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, "/users/me", nil, nil, &raw); err != nil {
		return debate.User{}, err
	}
	var u debate.User
	if err := unwrapKey(raw, "user", &u); err != nil {
		return debate.User{}, apperr.Wrap(apperr.Network, op, err)
	}
	if u.ID != "" {
		c.session.SetUser(u.ID)
	}
	return u, nil
}
