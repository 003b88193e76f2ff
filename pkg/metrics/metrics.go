package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the application's Prometheus instruments. One instance is
// created at startup and shared; all methods are safe for concurrent use.
type Collector struct {
	documentsUploaded prometheus.Counter
	documentsSigned   *prometheus.CounterVec
	fieldsSkipped     *prometheus.CounterVec
	signDuration      prometheus.Histogram
	documentSize      prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		documentsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Number of PDF documents uploaded.",
		}),
		documentsSigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_signed_total",
			Help: "Number of signing runs, by outcome.",
		}, []string{"status"}),
		fieldsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fields_skipped_total",
			Help: "Number of fields skipped during injection, by reason.",
		}, []string{"reason"}),
		signDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sign_duration_seconds",
			Help:    "End-to-end latency of a signing run.",
			Buckets: prometheus.DefBuckets,
		}),
		documentSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signed_document_bytes",
			Help:    "Size of produced signed documents.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
	reg.MustRegister(
		c.documentsUploaded,
		c.documentsSigned,
		c.fieldsSkipped,
		c.signDuration,
		c.documentSize,
	)
	return c
}

func (c *Collector) DocumentUploaded() {
	c.documentsUploaded.Inc()
}

func (c *Collector) DocumentSigned(status string) {
	c.documentsSigned.WithLabelValues(status).Inc()
}

func (c *Collector) FieldSkipped(reason string) {
	c.fieldsSkipped.WithLabelValues(reason).Inc()
}

func (c *Collector) ObserveSignDuration(seconds float64) {
	c.signDuration.Observe(seconds)
}

func (c *Collector) ObserveDocumentSize(bytes int) {
	c.documentSize.Observe(float64(bytes))
}
