package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Moves counts kinematic commands by command and result
	// (executed, rejected, failed).
	Moves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_moves_total",
		Help: "Kinematic commands by command and result",
	}, []string{"command", "result"})

	// SensePasses counts sense passes by outcome (applied, skipped).
	SensePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_sense_passes_total",
		Help: "Sense passes by outcome",
	}, []string{"outcome"})

	// Obstacles counts obstacle cells marked and retracted.
	Obstacles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_obstacles_total",
		Help: "Obstacle cells marked or retracted on the working grid",
	}, []string{"change"})

	// ExplorationRatio is the explored share of the working grid in percent.
	ExplorationRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_exploration_ratio_percent",
		Help: "Explored share of the working grid",
	})

	// LinkRoundTrip observes the time between a sensor request and its reply.
	LinkRoundTrip = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridbot_link_round_trip_seconds",
		Help:    "Controller sensor request round trip",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
