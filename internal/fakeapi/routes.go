package fakeapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lorenzotomasdiez/agora/internal/debate"
)

const userKey = "user_id"

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.track())

	api := r.Group("/api")
	api.Use(s.authenticate())
	{
		api.GET("/debates", s.listDebates)
		api.GET("/debates/categories", s.categories)
		api.GET("/debates/:id", s.getDebate)
		api.GET("/debates/:id/arguments", s.publicArguments)
		api.GET("/users/leaderboard", s.getLeaderboard)

		protected := api.Group("")
		protected.Use(requireUser())
		{
			protected.POST("/debates", s.createDebate)
			protected.GET("/debates/:id/arguments/with-votes", s.argumentsWithVotes)
			protected.POST("/debates/:id/arguments", s.createArgument)
			protected.GET("/debates/:id/user-side", s.userSide)
			protected.POST("/debates/:id/join-side", s.joinSide)
			protected.PUT("/arguments/:id", s.updateArgument)
			protected.DELETE("/arguments/:id", s.deleteArgument)
			protected.POST("/arguments/:id/vote", s.vote)
			protected.GET("/users/me", s.me)
		}
	}
	return r
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// track counts calls per route and serves injected failures.
func (s *Server) track() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		s.calls[route]++
		f := s.failures[route]
		var status int
		if f != nil && f.times > 0 {
			f.times--
			status = f.status
		}
		s.mu.Unlock()

		if status != 0 {
			fail(c, status, http.StatusText(status))
			return
		}
		c.Next()
	}
}

// authenticate resolves a bearer token to a user. Requests without a token
// continue anonymously; a bad token is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			fail(c, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		s.mu.Lock()
		now := s.now
		s.mu.Unlock()

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(now), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			fail(c, http.StatusUnauthorized, "Invalid token subject")
			return
		}

		s.mu.Lock()
		_, known := s.users[sub]
		s.mu.Unlock()
		if !known {
			fail(c, http.StatusUnauthorized, "User not found")
			return
		}
		c.Set(userKey, sub)
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(userKey) == "" {
			fail(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		c.Next()
	}
}

func (s *Server) debateParam(c *gin.Context) (*debate.Debate, bool) {
	id := c.Param("id")
	if !debate.ValidID(id) {
		fail(c, http.StatusBadRequest, "Invalid debate ID")
		return nil, false
	}
	d, found := s.debates[id]
	if !found {
		fail(c, http.StatusNotFound, "Debate not found")
		return nil, false
	}
	return d, true
}

func (s *Server) argumentParam(c *gin.Context) (*debate.Argument, bool) {
	id := c.Param("id")
	if !debate.ValidID(id) {
		fail(c, http.StatusBadRequest, "Invalid argument ID")
		return nil, false
	}
	a, found := s.arguments[id]
	if !found {
		fail(c, http.StatusNotFound, "Argument not found")
		return nil, false
	}
	return a, true
}

func (s *Server) listDebates(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	category := c.Query("category")
	search := strings.ToLower(c.Query("search"))
	active := c.Query("isActive")

	var matched []debate.Debate
	for _, id := range s.order {
		d := s.debates[id]
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Title+" "+d.Description), search) {
			continue
		}
		if active != "" && strconv.FormatBool(debate.IsOpen(d, s.now())) != active {
			continue
		}
		matched = append(matched, *d)
	}
	if c.Query("sort") == "createdAt" {
		desc := c.Query("order") != "asc"
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	}

	total := len(matched)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	ok(c, http.StatusOK, gin.H{"debates": append([]debate.Debate{}, matched[start:end]...), "total": total, "page": page, "limit": limit})
}

func (s *Server) categories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	cats := []string{}
	for _, d := range s.debates {
		if d.Category != "" && !seen[d.Category] {
			seen[d.Category] = true
			cats = append(cats, d.Category)
		}
	}
	sort.Strings(cats)
	ok(c, http.StatusOK, cats)
}

func (s *Server) getDebate(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.debateParam(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, gin.H{"debate": d})
}

func (s *Server) createDebate(c *gin.Context) {
	var input struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Category    string   `json:"category" binding:"required"`
		Tags        []string `json:"tags"`
		Duration    int64    `json:"duration" binding:"required"`
		ImageURL    string   `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.Duration <= 0 {
		fail(c, http.StatusBadRequest, "Duration must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uid := c.GetString(userKey)
	d := &debate.Debate{
		ID:          NewID(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Tags:        input.Tags,
		ImageURL:    input.ImageURL,
		Creator:     debate.UserRef{ID: uid, Name: s.users[uid].Name},
		Duration:    input.Duration,
		CreatedAt:   s.now(),
	}
	s.debates[d.ID] = d
	s.order = append(s.order, d.ID)
	ok(c, http.StatusCreated, gin.H{"debate": d})
}

func (s *Server) publicArguments(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.debateParam(c)
	if !found {
		return
	}
	args := s.listArguments(d.ID, "")
	ok(c, http.StatusOK, gin.H{"arguments": args, "total": len(args), "page": 1, "limit": len(args)})
}

func (s *Server) argumentsWithVotes(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.debateParam(c)
	if !found {
		return
	}
	args := s.listArguments(d.ID, c.GetString(userKey))
	ok(c, http.StatusOK, gin.H{"arguments": args, "total": len(args), "page": 1, "limit": len(args)})
}

func (s *Server) createArgument(c *gin.Context) {
	var input struct {
		Text string      `json:"text" binding:"required"`
		Side debate.Side `json:"side" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !input.Side.Valid() {
		fail(c, http.StatusBadRequest, "Side must be support or oppose")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.debateParam(c)
	if !found {
		return
	}
	if !debate.IsOpen(d, s.now()) {
		fail(c, http.StatusForbidden, "Debate has ended")
		return
	}
	uid := c.GetString(userKey)
	m, joined := s.sides[d.ID][uid]
	if !joined {
		fail(c, http.StatusForbidden, "Join a side before posting")
		return
	}
	if m.side != input.Side {
		fail(c, http.StatusForbidden, "You can only post on the side you joined")
		return
	}

	now := s.now()
	a := &debate.Argument{
		ID:        NewID(),
		DebateID:  d.ID,
		Author:    debate.UserRef{ID: uid, Name: s.users[uid].Name},
		Side:      input.Side,
		Text:      input.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.arguments[a.ID] = a
	s.argOrder = append(s.argOrder, a.ID)
	ok(c, http.StatusCreated, a)
}

// mutable loads an argument the caller may change: the debate must be open,
// the caller must be the author and the edit window must not have passed.
func (s *Server) mutable(c *gin.Context) (*debate.Argument, bool) {
	a, found := s.argumentParam(c)
	if !found {
		return nil, false
	}
	d := s.debates[a.DebateID]
	open := d != nil && debate.IsOpen(d, s.now())
	if err := debate.CanEdit(*a, c.GetString(userKey), open, s.now()); err != nil {
		fail(c, http.StatusForbidden, err.Error())
		return nil, false
	}
	return a, true
}

func (s *Server) updateArgument(c *gin.Context) {
	var input struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, allowed := s.mutable(c)
	if !allowed {
		return
	}
	a.Text = input.Text
	a.UpdatedAt = s.now()
	ok(c, http.StatusOK, a)
}

func (s *Server) deleteArgument(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, allowed := s.mutable(c)
	if !allowed {
		return
	}
	delete(s.arguments, a.ID)
	delete(s.votes, a.ID)
	for i, id := range s.argOrder {
		if id == a.ID {
			s.argOrder = append(s.argOrder[:i], s.argOrder[i+1:]...)
			break
		}
	}
	ok(c, http.StatusOK, nil)
}

func (s *Server) vote(c *gin.Context) {
	var input struct {
		VoteType debate.VoteType `json:"voteType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.VoteType != debate.Upvote && input.VoteType != debate.Downvote {
		fail(c, http.StatusBadRequest, "voteType must be upvote or downvote")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.argumentParam(c)
	if !found {
		return
	}
	if d := s.debates[a.DebateID]; d == nil || !debate.IsOpen(d, s.now()) {
		fail(c, http.StatusForbidden, "Debate has ended")
		return
	}
	uid := c.GetString(userKey)
	if a.Author.ID == uid {
		fail(c, http.StatusForbidden, "You cannot vote on your own argument")
		return
	}

	if s.votes[a.ID] == nil {
		s.votes[a.ID] = map[string]debate.VoteType{}
	}
	next, delta := debate.ApplyVote(s.votes[a.ID][uid], input.VoteType)
	a.Upvotes += delta.Up
	a.Downvotes += delta.Down
	if next == debate.NoVote {
		delete(s.votes[a.ID], uid)
	} else {
		s.votes[a.ID][uid] = next
	}
	ok(c, http.StatusOK, gin.H{"upvotes": a.Upvotes, "downvotes": a.Downvotes, "userVote": next})
}

func (s *Server) userSide(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.debateParam(c)
	if !found {
		return
	}
	m, joined := s.sides[d.ID][c.GetString(userKey)]
	if !joined {
		ok(c, http.StatusOK, gin.H{"side": nil})
		return
	}
	ok(c, http.StatusOK, gin.H{"side": m.side, "joinedAt": m.joinedAt.Format(time.RFC3339)})
}

func (s *Server) joinSide(c *gin.Context) {
	var input struct {
		Side debate.Side `json:"side" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || !input.Side.Valid() {
		fail(c, http.StatusBadRequest, "Side must be support or oppose")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.debateParam(c)
	if !found {
		return
	}
	if !debate.IsOpen(d, s.now()) {
		fail(c, http.StatusForbidden, "Debate has ended")
		return
	}
	uid := c.GetString(userKey)
	if m, joined := s.sides[d.ID][uid]; joined {
		if m.side != input.Side {
			fail(c, http.StatusConflict, "You have already joined the other side")
			return
		}
		ok(c, http.StatusOK, gin.H{"side": m.side})
		return
	}
	s.join(d.ID, uid, input.Side)
	ok(c, http.StatusOK, gin.H{"side": input.Side})
}

func (s *Server) getLeaderboard(c *gin.Context) {
	period, err := debate.ParsePeriod(c.Query("period"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid period")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, http.StatusOK, s.leaderboard(period, limit))
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.users[c.GetString(userKey)]
	participated := 0
	for _, members := range s.sides {
		if _, joined := members[u.ID]; joined {
			participated++
		}
	}
	u.DebatesParticipated = participated
	ok(c, http.StatusOK, u)
}
