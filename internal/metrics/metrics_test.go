package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceCounters(t *testing.T) {
	m := New()

	m.InvoiceCreated(30000)
	m.InvoiceCreated(1000)
	m.InvoiceFailed(ReasonEmptyCart)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.invoices))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invoiceFailure.WithLabelValues(ReasonEmptyCart)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.invoiceFailure.WithLabelValues(ReasonPersistence)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.InvoiceCreated(1)
		m.InvoiceFailed(ReasonPersistence)
	})
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/2", nil))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/items/:id", "200")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kasir_http_requests_total")
}
