package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/playperu/dailygeo/internal/geo"
)

// Guess outcomes recorded by Metrics.
const (
	outcomeAccepted          = "accepted"
	outcomeInvalidTransition = "invalid_transition"
	outcomeValidation        = "validation"
	outcomeNotFound          = "not_found"
	outcomeError             = "error"
)

// Metrics are the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	created   prometheus.Counter
	conflicts prometheus.Counter
	guesses   *prometheus.CounterVec
	scores    prometheus.Histogram
	completed prometheus.Counter
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		created: f.NewCounter(prometheus.CounterOpts{
			Name: "dailygeo_playthroughs_created_total",
			Help: "Play-throughs created on first start.",
		}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "dailygeo_playthrough_conflicts_total",
			Help: "Concurrent play-through creations resolved by re-reading the winner.",
		}),
		guesses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dailygeo_guesses_total",
			Help: "Guess submissions by outcome.",
		}, []string{"outcome"}),
		scores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dailygeo_guess_score",
			Help:    "Score awarded per accepted guess.",
			Buckets: prometheus.LinearBuckets(0, geo.MaxScore/10, 11),
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Name: "dailygeo_games_completed_total",
			Help: "Play-throughs that reached the final round.",
		}),
	}
}

func (m *Metrics) playThroughCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) conflictRecovered() {
	if m != nil {
		m.conflicts.Inc()
	}
}

func (m *Metrics) guess(outcome string) {
	if m != nil {
		m.guesses.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) accepted(score int, completed bool) {
	if m == nil {
		return
	}
	m.guesses.WithLabelValues(outcomeAccepted).Inc()
	m.scores.Observe(float64(score))
	if completed {
		m.completed.Inc()
	}
}
