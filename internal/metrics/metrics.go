package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPLatencySec  prometheus.Histogram
	RateLimited     prometheus.Counter
	OrdersPlaced    prometheus.Counter
	OrdersCancelled prometheus.Counter
	PaymentsPaid    *prometheus.CounterVec
	BatchesLocked   prometheus.Counter
	EventsFailed    prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mandi_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})
	httpLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mandi_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_http_rate_limited_total"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_orders_placed_total"})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_orders_cancelled_total"})
	paymentsPaid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mandi_payments_recorded_total",
	}, []string{"stage"})
	batchesLocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mandi_batches_locked_by_sweeper_total",
	})
	eventsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_events_publish_failed_total"})

	r.MustRegister(httpRequests, httpLatency, rateLimited, ordersPlaced, ordersCancelled, paymentsPaid, batchesLocked, eventsFailed)
	return &Registry{
		reg:             r,
		HTTPRequests:    httpRequests,
		HTTPLatencySec:  httpLatency,
		RateLimited:     rateLimited,
		OrdersPlaced:    ordersPlaced,
		OrdersCancelled: ordersCancelled,
		PaymentsPaid:    paymentsPaid,
		BatchesLocked:   batchesLocked,
		EventsFailed:    eventsFailed,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
