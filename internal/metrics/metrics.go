package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const namespace = "arena"

// Snapshot is the live size of the arena.
type Snapshot struct {
	Sessions   int `json:"players"`
	Matches    int `json:"matches"`
	QueueDepth int `json:"queue"`
}

type snapshotSource interface {
	Stats() Snapshot
}

type Metrics struct {
	registerer prometheus.Registerer

	matchesStarted   *prometheus.CounterVec
	matchesFinished  *prometheus.CounterVec
	matchesAbandoned *prometheus.CounterVec
	movesRejected    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) (*Metrics, error) {
	that := &Metrics{
		registerer: registerer,

		matchesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "matches_started_total", Help: "Matches created"},
			[]string{"ranked"},
		),
		matchesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "matches_finished_total", Help: "Matches that reached an outcome"},
			[]string{"outcome"},
		),
		matchesAbandoned: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "matches_abandoned_total", Help: "Matches removed before an outcome"},
			[]string{"reason"},
		),
		movesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "moves_rejected_total", Help: "Moves rejected by validation"},
			[]string{"reason"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Ops HTTP requests"},
			[]string{"method", "path", "status"},
		),
	}

	for _, collector := range []prometheus.Collector{
		that.matchesStarted, that.matchesFinished, that.matchesAbandoned, that.movesRejected, that.httpRequests,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return that, nil
}

// Observe exports the live arena size as gauges read on every scrape.
func (that *Metrics) Observe(source snapshotSource) error {
	gauges := map[string]func(Snapshot) int{
		"sessions":    func(s Snapshot) int { return s.Sessions },
		"matches":     func(s Snapshot) int { return s.Matches },
		"queue_depth": func(s Snapshot) int { return s.QueueDepth },
	}

	for name, read := range gauges {
		gauge := prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: "Current number of " + name},
			func() float64 { return float64(read(source.Stats())) },
		)

		if err := that.registerer.Register(gauge); err != nil {
			return fmt.Errorf("failed to register %s gauge: %w", name, err)
		}
	}

	return nil
}

func (that *Metrics) MatchStarted(ranked bool) {
	that.matchesStarted.WithLabelValues(strconv.FormatBool(ranked)).Inc()
}

func (that *Metrics) MatchFinished(outcome entity.Outcome) {
	that.matchesFinished.WithLabelValues(string(outcome)).Inc()
}

func (that *Metrics) MatchAbandoned(reason string) {
	that.matchesAbandoned.WithLabelValues(reason).Inc()
}

func (that *Metrics) MoveRejected(reason string) {
	that.movesRejected.WithLabelValues(reason).Inc()
}

func (that *Metrics) HTTPRequest(method, path string, status int) {
	that.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
