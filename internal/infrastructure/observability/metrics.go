package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	EventsTotal         *prometheus.CounterVec
	ConnectAttempts     prometheus.Counter
	ReconcileFixesTotal *prometheus.CounterVec
	RecordingsStarted   prometheus.Counter
	RecordingsStopped   prometheus.Counter
	CollectedFilesTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "obs_requests_total",
			Help:      "OBS requests sent, by request type and outcome",
		}, []string{"type", "status"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "obs_events_total",
			Help:      "OBS events dispatched, by event type",
		}, []string{"type"}),
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "obs_connect_attempts_total",
			Help:      "Handshake attempts against the OBS websocket",
		}),
		ReconcileFixesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "reconcile_fixes_total",
			Help:      "Corrective actions issued by the configuration engine",
		}, []string{"kind"}),
		RecordingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "recordings_started_total",
			Help:      "Recording sessions started",
		}),
		RecordingsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "recordings_stopped_total",
			Help:      "Recording sessions stopped",
		}),
		CollectedFilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutorial_recorder",
			Name:      "collected_files_total",
			Help:      "Recording files collected into session folders",
		}),
	}
	r.MustRegister(
		m.RequestsTotal, m.EventsTotal, m.ConnectAttempts,
		m.ReconcileFixesTotal, m.RecordingsStarted, m.RecordingsStopped,
		m.CollectedFilesTotal,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
