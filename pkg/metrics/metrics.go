package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Automation run metrics
	AutomationRuns        *prometheus.CounterVec
	AutomationRunDuration prometheus.Histogram
	RunsRejected          prometheus.Counter

	// Scanner metrics
	TriggersScanned *prometheus.CounterVec
	SubjectsSkipped prometheus.Counter
	ScanDuration    prometheus.Histogram

	// Dispatch metrics
	MessagesDispatched *prometheus.CounterVec
	DispatchLatency    prometheus.Histogram
	LedgerSkips        prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		AutomationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "automation_runs_total",
			Help:      "Total number of automation runs by outcome",
		}, []string{"outcome"}),
		AutomationRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "automation_run_duration_seconds",
			Help:      "Duration of full automation runs",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RunsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "automation_runs_rejected_total",
			Help:      "Total number of run requests rejected because a run was in flight",
		}),
		TriggersScanned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "triggers_scanned_total",
			Help:      "Total number of due triggers emitted by the scanner",
		}, []string{"trigger_type"}),
		SubjectsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scan_subjects_skipped_total",
			Help:      "Total number of subjects skipped during scans (no contact address)",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning for due triggers",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		MessagesDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_dispatched_total",
			Help:      "Total number of dispatch attempts by trigger type and status",
		}, []string{"trigger_type", "status"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of individual transport calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		LedgerSkips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_skips_total",
			Help:      "Total number of jobs skipped because the trigger already fired",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// New creates unregistered metrics, for tests and secondary consumers.
func New(namespace string) *Metrics {
	return &Metrics{
		AutomationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automation_runs_total",
			Help:      "Total number of automation runs by outcome",
		}, []string{"outcome"}),
		AutomationRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "automation_run_duration_seconds",
			Help:      "Duration of full automation runs",
		}),
		RunsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automation_runs_rejected_total",
			Help:      "Total number of run requests rejected because a run was in flight",
		}),
		TriggersScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_scanned_total",
			Help:      "Total number of due triggers emitted by the scanner",
		}, []string{"trigger_type"}),
		SubjectsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_subjects_skipped_total",
			Help:      "Total number of subjects skipped during scans (no contact address)",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning for due triggers",
		}),
		MessagesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dispatched_total",
			Help:      "Total number of dispatch attempts by trigger type and status",
		}, []string{"trigger_type", "status"}),
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of individual transport calls",
		}),
		LedgerSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_skips_total",
			Help:      "Total number of jobs skipped because the trigger already fired",
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
