package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model backend and retrieval pipeline Prometheus metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventdex",
			Name:      "model_requests_total",
			Help:      "Total number of model backend requests",
		},
		[]string{"backend", "model", "operation", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventdex",
			Name:      "model_request_duration_seconds",
			Help:      "Model backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "model", "operation"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventdex",
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"backend", "model", "type"},
	)

	RetrievalPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventdex",
			Name:      "retrieval_path_total",
			Help:      "Retrieval outcomes by path (vector_index, fallback_scan, filtered_out, empty)",
		},
		[]string{"path"},
	)

	RetrievalCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventdex",
			Name:      "retrieval_candidates",
			Help:      "Candidate count observed at each pipeline stage",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"stage"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventdex",
			Name:      "queries_total",
			Help:      "Total assistant queries by routing decision",
		},
		[]string{"route"}, // curated collection tag or "search"
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers the model and retrieval metrics.
// Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(ModelTokensTotal)
	prometheus.MustRegister(RetrievalPathTotal)
	prometheus.MustRegister(RetrievalCandidates)
	prometheus.MustRegister(QueriesTotal)
	modelMetricsRegistered = true
}
