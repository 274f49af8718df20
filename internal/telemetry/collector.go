// Package telemetry exports initialization run metrics to Prometheus.
package telemetry

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	metricsNamespaceConstant   = "initgraph"
	taskLabelConstant          = "task"
	outcomeLabelConstant       = "outcome"
	statusLabelConstant        = "status"
	taskStartedNameConstant    = "task_started_total"
	taskStartedHelpConstant    = "Task bodies started."
	taskOutcomeNameConstant    = "task_outcomes_total"
	taskOutcomeHelpConstant    = "Tasks settled, by terminal outcome."
	taskDurationNameConstant   = "task_duration_seconds"
	taskDurationHelpConstant   = "Task body execution time."
	tasksActiveNameConstant    = "tasks_active"
	tasksActiveHelpConstant    = "Task bodies currently executing."
	runOutcomeNameConstant     = "run_outcomes_total"
	runOutcomeHelpConstant     = "Initialization runs finished, by status."
	runDurationNameConstant    = "run_duration_seconds"
	runDurationHelpConstant    = "Initialization run wall-clock time."
	lastRunSuccessNameConstant = "last_run_success"
	lastRunSuccessHelpConstant = "Whether the most recent run succeeded (1) or failed (0)."
)

// Collector records controller lifecycle events as Prometheus metrics on a private registry.
type Collector struct {
	registry       *prometheus.Registry
	taskStarted    *prometheus.CounterVec
	taskOutcomes   *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	tasksActive    prometheus.Gauge
	runOutcomes    *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRunSuccess prometheus.Gauge
	runsFinished   atomic.Int64
	lastSucceeded  atomic.Bool
}

var _ initgraph.Observer = (*Collector)(nil)

// NewCollector registers the run metrics together with Go runtime and process collectors.
func NewCollector() (*Collector, error) {
	collector := &Collector{
		registry: prometheus.NewRegistry(),
		taskStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      taskStartedNameConstant,
			Help:      taskStartedHelpConstant,
		}, []string{taskLabelConstant}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      taskOutcomeNameConstant,
			Help:      taskOutcomeHelpConstant,
		}, []string{taskLabelConstant, outcomeLabelConstant}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Name:      taskDurationNameConstant,
			Help:      taskDurationHelpConstant,
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{taskLabelConstant}),
		tasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Name:      tasksActiveNameConstant,
			Help:      tasksActiveHelpConstant,
		}),
		runOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      runOutcomeNameConstant,
			Help:      runOutcomeHelpConstant,
		}, []string{statusLabelConstant}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Name:      runDurationNameConstant,
			Help:      runDurationHelpConstant,
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Name:      lastRunSuccessNameConstant,
			Help:      lastRunSuccessHelpConstant,
		}),
	}

	metricCollectors := []prometheus.Collector{
		collector.taskStarted,
		collector.taskOutcomes,
		collector.taskDuration,
		collector.tasksActive,
		collector.runOutcomes,
		collector.runDuration,
		collector.lastRunSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, metricCollector := range metricCollectors {
		if registrationError := collector.registry.Register(metricCollector); registrationError != nil {
			return nil, registrationError
		}
	}
	return collector, nil
}

// Registry exposes the private registry for gathering.
func (collector *Collector) Registry() *prometheus.Registry {
	return collector.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (collector *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{Registry: collector.registry})
}

// TaskStarted counts a body start.
func (collector *Collector) TaskStarted(_ string, identifier initgraph.TaskID) {
	collector.taskStarted.WithLabelValues(string(identifier)).Inc()
	collector.tasksActive.Inc()
}

// TaskFinished counts the outcome and, for started bodies, observes the duration.
func (collector *Collector) TaskFinished(_ string, record initgraph.ExecutionRecord) {
	collector.taskOutcomes.WithLabelValues(string(record.TaskID), string(record.Outcome)).Inc()
	if record.Started {
		collector.tasksActive.Dec()
		collector.taskDuration.WithLabelValues(string(record.TaskID)).Observe(record.Duration().Seconds())
	}
}

// RunFinished counts the run status.
func (collector *Collector) RunFinished(report initgraph.Report) {
	collector.runOutcomes.WithLabelValues(string(report.Status)).Inc()
	collector.runDuration.Observe(report.Duration().Seconds())
	if report.Succeeded() {
		collector.lastRunSuccess.Set(1)
	} else {
		collector.lastRunSuccess.Set(0)
	}
	collector.lastSucceeded.Store(report.Succeeded())
	collector.runsFinished.Add(1)
}

// Ready reports whether at least one run finished and the most recent one succeeded.
func (collector *Collector) Ready() bool {
	return collector.runsFinished.Load() > 0 && collector.lastSucceeded.Load()
}
