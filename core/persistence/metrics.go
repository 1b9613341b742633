package persistence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "datamap"
	subsystem = "persistence"
)

// Metrics counts executed commands and save outcomes.
type Metrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	savesTotal      *prometheus.CounterVec
}

// NewMetrics registers the persistence collectors with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commands_total",
				Help:      "Total number of executed commands by table, kind and outcome",
			},
			[]string{"table", "kind", "outcome"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "command_duration_seconds",
				Help:      "Duration of command execution in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table", "kind"},
		),
		savesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "saves_total",
				Help:      "Total number of entity saves by table, save type and status",
			},
			[]string{"table", "type", "status"},
		),
	}
}

func (m *Metrics) recordCommand(table, kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.commandsTotal.WithLabelValues(table, kind, outcome).Inc()
	m.commandDuration.WithLabelValues(table, kind).Observe(d.Seconds())
}

func (m *Metrics) recordSave(table string, r SaveResult) {
	if m == nil {
		return
	}
	m.savesTotal.WithLabelValues(table, r.Type().String(), r.Status().String()).Inc()
}
