// Package metrics exposes Prometheus collectors for API traffic,
// moderation verdicts, votes and open sessions.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests and multiple clients never
// collide on the default one. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	moderation  *prometheus.CounterVec
	votes       *prometheus.CounterVec
	cache       *prometheus.CounterVec
	sessions    prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_api_requests_total",
				Help: "Requests sent to the debate service, by method, route and status.",
			},
			[]string{"method", "route", "code"},
		),
		moderation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_moderation_verdicts_total",
				Help: "Moderation verdicts, by stage and outcome.",
			},
			[]string{"stage", "verdict"},
		),
		votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_votes_total",
				Help: "Votes cast from this client, by type and result.",
			},
			[]string{"type", "result"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_cache_lookups_total",
				Help: "Debate cache lookups, by result.",
			},
			[]string{"result"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agora_sessions_open",
			Help: "Debate sessions currently open.",
		}),
	}
	r.registry.MustRegister(r.apiRequests, r.moderation, r.votes, r.cache, r.sessions)
	return r
}

// ObserveRequest counts one API round trip. code 0 means no response.
func (r *Recorder) ObserveRequest(method, route string, code int) {
	if r == nil {
		return
	}
	r.apiRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// ObserveVerdict counts a moderation outcome.
func (r *Recorder) ObserveVerdict(stage string, safe bool) {
	if r == nil {
		return
	}
	verdict := "unsafe"
	if safe {
		verdict = "safe"
	}
	r.moderation.WithLabelValues(stage, verdict).Inc()
}

// ObserveVote counts a vote attempt.
func (r *Recorder) ObserveVote(voteType string, ok bool) {
	if r == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	r.votes.WithLabelValues(voteType, result).Inc()
}

// ObserveCache counts a cache hit or miss.
func (r *Recorder) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// SessionOpened and SessionClosed track live sessions.
func (r *Recorder) SessionOpened() {
	if r != nil {
		r.sessions.Inc()
	}
}

func (r *Recorder) SessionClosed() {
	if r != nil {
		r.sessions.Dec()
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
