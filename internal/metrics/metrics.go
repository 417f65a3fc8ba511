package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector owns the service's Prometheus collectors on a private registry
type Collector struct {
	registry *prometheus.Registry

	ordersCreated    prometheus.Counter
	itemsAdded       prometheus.Counter
	transitions      *prometheus.CounterVec
	orderValue       prometheus.Histogram
	openOrders       prometheus.Gauge
	logins           *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpRequestTimes *prometheus.HistogramVec
}

// NewCollector creates a collector with every metric registered
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comanda_orders_created_total",
			Help: "Orders opened against a table",
		}),
		itemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comanda_order_items_added_total",
			Help: "Order lines appended to pending orders after creation",
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comanda_order_transitions_total",
				Help: "Order status transitions by target status",
			},
			[]string{"status"},
		),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "comanda_order_value",
			Help:    "Total of completed orders",
			Buckets: prometheus.LinearBuckets(0, 100, 20),
		}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comanda_open_orders",
			Help: "Orders opened minus orders released since start",
		}),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comanda_logins_total",
				Help: "Login attempts by account type and result",
			},
			[]string{"type", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comanda_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "comanda_http_request_duration_seconds",
				Help: "HTTP request latency by route",
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.ordersCreated,
		c.itemsAdded,
		c.transitions,
		c.orderValue,
		c.openOrders,
		c.logins,
		c.httpRequests,
		c.httpRequestTimes,
	)
	return c
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOrderCreated counts a new order
func (c *Collector) RecordOrderCreated() {
	c.ordersCreated.Inc()
	c.openOrders.Inc()
}

// RecordItemsAdded counts lines appended to an existing order
func (c *Collector) RecordItemsAdded(n int) {
	c.itemsAdded.Add(float64(n))
}

// RecordTransition counts a status change. released reports whether the
// order let go of its table; total is observed for completed orders.
func (c *Collector) RecordTransition(status string, released bool, completed bool, total decimal.Decimal) {
	c.transitions.WithLabelValues(status).Inc()
	if released {
		c.openOrders.Dec()
	}
	if completed {
		f, _ := total.Float64()
		c.orderValue.Observe(f)
	}
}

// RecordLogin counts a login attempt
func (c *Collector) RecordLogin(kind string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(kind, result).Inc()
}

// RecordRequest counts a served HTTP request
func (c *Collector) RecordRequest(method, route string, status int, seconds float64) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestTimes.WithLabelValues(method, route).Observe(seconds)
}
