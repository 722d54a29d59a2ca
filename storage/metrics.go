package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts storage activity. A nil *Metrics records nothing.
type Metrics struct {
	// RowsWritten counts rows persisted by partitioned writes.
	RowsWritten prometheus.Counter
	// ObjectsWritten counts parquet objects created.
	ObjectsWritten prometheus.Counter
	// ObjectsDeleted counts objects removed, by reason ("overwrite" or "query").
	ObjectsDeleted *prometheus.CounterVec
	// DeleteFailures counts keys a bulk delete reported as not deleted.
	DeleteFailures prometheus.Counter
}

// NewMetrics registers the storage collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RowsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "partsync_rows_written_total",
			Help: "Total number of rows written to partitioned storage",
		}),
		ObjectsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "partsync_objects_written_total",
			Help: "Total number of parquet objects written",
		}),
		ObjectsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "partsync_objects_deleted_total",
			Help: "Total number of objects deleted",
		}, []string{"reason"}),
		DeleteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "partsync_delete_failures_total",
			Help: "Total number of keys a bulk delete failed to remove",
		}),
	}
}

func (m *Metrics) wrote(rows, objects int) {
	if m == nil {
		return
	}
	m.RowsWritten.Add(float64(rows))
	m.ObjectsWritten.Add(float64(objects))
}

func (m *Metrics) deleted(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ObjectsDeleted.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) deleteFailed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.DeleteFailures.Add(float64(n))
}
