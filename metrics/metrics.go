// Package metrics exposes the Prometheus collectors for authorization
// decisions and audit chain health.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hoteltrack"

type Collector struct {
	registry *prometheus.Registry

	Decisions       *prometheus.CounterVec
	CatalogLookups  *prometheus.CounterVec
	AuditAppends    *prometheus.CounterVec
	ChainFindings   *prometheus.CounterVec
	ArchivedEntries prometheus.Counter
	VerifyDuration  *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by path and outcome",
		}, []string{"path", "allowed"}),
		CatalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "catalog_lookups_total",
			Help:      "Permission resolver lookups by result",
		}, []string{"result"}),
		AuditAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "appends_total",
			Help:      "Audit appends by status",
		}, []string{"status"}),
		ChainFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "chain_findings_total",
			Help:      "Integrity findings reported by chain verification",
		}, []string{"kind"}),
		ArchivedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "archived_entries_total",
			Help:      "Audit entries moved out of the live verification window",
		}),
		VerifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "verify_duration_seconds",
			Help:      "Chain verification duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin API requests",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.Decisions,
		c.CatalogLookups,
		c.AuditAppends,
		c.ChainFindings,
		c.ArchivedEntries,
		c.VerifyDuration,
		c.HTTPRequests,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Default is the process-wide collector.
var Default = NewCollector()

func ObserveDecision(path string, allowed bool) {
	Default.Decisions.WithLabelValues(path, strconv.FormatBool(allowed)).Inc()
}

func ObserveCatalogLookup(result string) {
	Default.CatalogLookups.WithLabelValues(result).Inc()
}

func ObserveAppend(status string) {
	Default.AuditAppends.WithLabelValues(status).Inc()
}

func ObserveChainFinding(kind string) {
	Default.ChainFindings.WithLabelValues(kind).Inc()
}

func ObserveArchived(n int64) {
	if n > 0 {
		Default.ArchivedEntries.Add(float64(n))
	}
}

func ObserveVerify(mode string, d time.Duration) {
	Default.VerifyDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func ObserveHTTPRequest(method, route string, status int) {
	Default.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
