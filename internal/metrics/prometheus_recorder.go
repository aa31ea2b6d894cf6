package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "webdog"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	buildDuration   prom.Histogram
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	devEvents       *prom.CounterVec
	liveConnections prom.Gauge
	broadcasts      prom.Counter
	droppedPeers    prom.Counter
}

// NewPrometheusRecorder constructs metrics and registers them with reg. A
// nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total one-shot build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		devEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dev_events_total",
			Help:      "File events handled by the dev coordinator",
		}, []string{"root", "result"}),
		liveConnections: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Open live reload connections",
		}),
		broadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reload_broadcasts_total",
			Help:      "Reload broadcasts sent",
		}),
		droppedPeers: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reload_dropped_peers_total",
			Help:      "Live reload connections removed after a failed send",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.devEvents, pr.liveConnections, pr.broadcasts, pr.droppedPeers)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncDevEvent(root string, result ResultLabel) {
	if p == nil {
		return
	}
	p.devEvents.WithLabelValues(root, string(result)).Inc()
}

func (p *PrometheusRecorder) SetLiveConnections(n int) {
	if p == nil {
		return
	}
	p.liveConnections.Set(float64(n))
}

func (p *PrometheusRecorder) IncReloadBroadcast() {
	if p == nil {
		return
	}
	p.broadcasts.Inc()
}

func (p *PrometheusRecorder) AddDroppedPeers(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.droppedPeers.Add(float64(n))
}
