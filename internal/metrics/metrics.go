// Package metrics registers the application's Prometheus collectors on a
// private registry and exposes them over HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kasir"

// Invoice failure reasons.
const (
	ReasonEmptyCart         = "empty_cart"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonUnknownProduct    = "unknown_product"
	ReasonAmountOutOfRange  = "amount_out_of_range"
	ReasonPersistence       = "persistence"
)

type Metrics struct {
	Registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	invoices       prometheus.Counter
	invoiceFailure *prometheus.CounterVec
	invoiceAmount  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invoices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_invoices_created_total",
			Help:      "Sale invoices committed.",
		}),
		invoiceFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_invoice_failures_total",
			Help:      "Sale invoice submissions that did not commit.",
		}, []string{"reason"}),
		invoiceAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_invoice_amount",
			Help:      "Total amount of committed sale invoices, in minor units.",
			Buckets:   prometheus.ExponentialBuckets(10000, 4, 10),
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.invoices,
		m.invoiceFailure,
		m.invoiceAmount,
	)
	return m
}

// InvoiceCreated records a committed invoice.
func (m *Metrics) InvoiceCreated(total int64) {
	if m == nil {
		return
	}
	m.invoices.Inc()
	m.invoiceAmount.Observe(float64(total))
}

// InvoiceFailed records a submission that did not commit.
func (m *Metrics) InvoiceFailed(reason string) {
	if m == nil {
		return
	}
	m.invoiceFailure.WithLabelValues(reason).Inc()
}

// GinMiddleware counts and times every request by its route pattern.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
