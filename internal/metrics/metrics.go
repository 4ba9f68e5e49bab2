package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. Construct once at
// process start and inject where needed.
type Metrics struct {
	JobsProcessed *prometheus.CounterVec
	ImportRows    *prometheus.CounterVec
	Exports       *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_jobs_processed_total",
				Help: "Job attempts settled, by lane and outcome.",
			},
			[]string{"lane", "outcome"},
		),
		ImportRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_import_rows_total",
				Help: "Import rows handled, by result.",
			},
			[]string{"result"},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_exports_generated_total",
				Help: "Export artifacts generated, by format.",
			},
			[]string{"format"},
		),
	}
}

// Import row results.
const (
	RowInserted  = "inserted"
	RowDuplicate = "duplicate"
	RowInvalid   = "invalid"
)

// Job outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)
