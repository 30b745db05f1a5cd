package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg                *prometheus.Registry
	Normalized         prometheus.Counter
	Rejected           *prometheus.CounterVec
	MergedInserted     prometheus.Counter
	MergedReplaced     prometheus.Counter
	ProjectedRows      prometheus.Counter
	ResumeSkipped      prometheus.Counter
	SinkRetries        prometheus.Counter
	SinkWriteSec       prometheus.Histogram
	LastManifestAgeSec prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	normalized := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_normalized_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_rejected_total"}, []string{"reason"})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_merged_inserted_total"})
	replaced := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_merged_replaced_total"})
	projected := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_projected_rows_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_resume_skipped_total"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_sink_retries_total"})
	writeSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_sink_write_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lastAge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_last_manifest_age_seconds"})

	r.MustRegister(normalized, rejected, inserted, replaced, projected, skipped, retries, writeSec, lastAge)
	return &Registry{
		reg:                r,
		Normalized:         normalized,
		Rejected:           rejected,
		MergedInserted:     inserted,
		MergedReplaced:     replaced,
		ProjectedRows:      projected,
		ResumeSkipped:      skipped,
		SinkRetries:        retries,
		SinkWriteSec:       writeSec,
		LastManifestAgeSec: lastAge,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
