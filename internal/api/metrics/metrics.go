// Package metrics defines the custom Prometheus metrics of the Oncosist API.
// All collectors register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oncosist"

// ── Scan archive ──────────────────────────────────────────────────────────────

// ScansUploadedTotal counts stored scan files.
// Label:
//   - format: normalised extension (png, jpg, jpeg, nii, nii.gz)
var ScansUploadedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_uploaded_total",
		Help:      "Total number of scan files stored, by format.",
	},
	[]string{"format"},
)

// ScanUploadsRejectedTotal counts upload requests refused before any write.
// Label:
//   - reason: "unsupported_format", "validation", "storage"
var ScanUploadsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_uploads_rejected_total",
		Help:      "Total number of rejected upload requests, by reason.",
	},
	[]string{"reason"},
)

// ── Prediction pipeline ───────────────────────────────────────────────────────

// PredictionsServedTotal counts successful predict calls.
// Label:
//   - outcome: "cache_hit", "computed" or "race_recovered"
var PredictionsServedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_served_total",
		Help:      "Total number of predictions returned, by how they were obtained.",
	},
	[]string{"outcome"},
)

// PredictionErrorsTotal counts failed predict calls.
// Label:
//   - reason: "scan_not_found", "inference", "storage", "internal"
var PredictionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prediction_errors_total",
		Help:      "Total number of failed prediction requests, by reason.",
	},
	[]string{"reason"},
)

// InferenceDuration measures a single scoring call on a dispatcher worker.
// Label:
//   - result: "ok" or "error"
var InferenceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Duration of scoring function calls.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"result"},
)

// InferenceQueueDepth tracks pending jobs per dispatcher shard.
// Label:
//   - shard: numeric shard index
var InferenceQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inference_queue_depth",
		Help:      "Current number of scoring jobs waiting in each dispatcher shard.",
	},
	[]string{"shard"},
)

// ── Auth ──────────────────────────────────────────────────────────────────────

// AuthEventsTotal counts credential operations.
// Labels:
//   - action: "signup", "login", "refresh"
//   - result: "ok" or "error"
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Total number of signup, login and refresh attempts, by result.",
	},
	[]string{"action", "result"},
)
