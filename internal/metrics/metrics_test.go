package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveRequest("GET", "/debates/:debateId", 200)
	r.ObserveRequest("GET", "/debates/:debateId", 200)
	r.ObserveRequest("POST", "/arguments/:argumentId/vote", 401)
	r.ObserveVerdict("local", false)
	r.ObserveVerdict("remote", true)
	r.ObserveVote("upvote", true)
	r.ObserveCache(true)
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()

	if got := testutil.ToFloat64(r.apiRequests.WithLabelValues("GET", "/debates/:debateId", "200")); got != 2 {
		t.Errorf("GET requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.apiRequests.WithLabelValues("POST", "/arguments/:argumentId/vote", "401")); got != 1 {
		t.Errorf("401 votes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.moderation.WithLabelValues("local", "unsafe")); got != 1 {
		t.Errorf("local unsafe = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.votes.WithLabelValues("upvote", "ok")); got != 1 {
		t.Errorf("votes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.cache.WithLabelValues("hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sessions); got != 1 {
		t.Errorf("sessions = %v, want 1", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveRequest("GET", "/", 200)
	r.ObserveVerdict("local", true)
	r.ObserveVote("downvote", false)
	r.ObserveCache(false)
	r.SessionOpened()
	r.SessionClosed()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveVote("upvote", true)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `agora_votes_total{result="ok",type="upvote"} 1`) {
		t.Errorf("metrics output missing vote counter:\n%s", body)
	}
}
