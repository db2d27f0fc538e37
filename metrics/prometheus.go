package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tradecore/model"
)

const namespace = "tradecore"

var (
	ordersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "orders"),
		"Number of orders by status.",
		[]string{"status"}, nil,
	)
	activeNodesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "nodes_active"),
		"Number of nodes with status active.",
		nil, nil,
	)
	pendingDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "messages_pending"),
		"Number of messages waiting for delivery.",
		nil, nil,
	)
	agreementsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "agreements"),
		"Number of registered exchange agreements.",
		nil, nil,
	)
)

// summaryCollector reads the facade at scrape time.
type summaryCollector struct {
	facade *Facade
}

func (c summaryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- ordersDesc
	ch <- activeNodesDesc
	ch <- pendingDesc
	ch <- agreementsDesc
}

func (c summaryCollector) Collect(ch chan<- prometheus.Metric) {
	if byStatus, err := c.facade.OrdersByStatus(); err == nil {
		for status, n := range byStatus {
			ch <- prometheus.MustNewConstMetric(ordersDesc, prometheus.GaugeValue, float64(n), string(status))
		}
	}
	ch <- prometheus.MustNewConstMetric(activeNodesDesc, prometheus.GaugeValue,
		float64(c.facade.nodes.CountByStatus(model.NodeActive)))
	ch <- prometheus.MustNewConstMetric(pendingDesc, prometheus.GaugeValue, float64(c.facade.queue.Pending()))
	if n, err := c.facade.agreements.Count(); err == nil {
		ch <- prometheus.MustNewConstMetric(agreementsDesc, prometheus.GaugeValue, float64(n))
	}
}

// Recorder counts engine activity.
type Recorder struct {
	registry *prometheus.Registry

	OrdersCreated     *prometheus.CounterVec
	StatusChanges     *prometheus.CounterVec
	MessagesDelivered *prometheus.CounterVec
	DeliveryLatency   prometheus.Histogram
	AgreementsFired   prometheus.Counter
	OutboxPublished   *prometheus.CounterVec
}

// NewRecorder builds a private registry holding the summary collector, the
// activity counters and the Go runtime collectors.
func NewRecorder(facade *Facade) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by shipping tier.",
		}, []string{"tier"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Order status transitions, by new status.",
		}, []string{"status"}),
		MessagesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages delivered, by type and handler result.",
		}, []string{"type", "result"}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Scheduled one-way latency of delivered messages.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		AgreementsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agreements_fired_total",
			Help:      "Exchange agreement firings.",
		}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox publish attempts, by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		summaryCollector{facade: facade},
		r.OrdersCreated,
		r.StatusChanges,
		r.MessagesDelivered,
		r.DeliveryLatency,
		r.AgreementsFired,
		r.OutboxPublished,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry returns the registry to serve on /metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveDelivery counts a delivered message.
func (r *Recorder) ObserveDelivery(msgType string, latency time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.MessagesDelivered.WithLabelValues(msgType, result).Inc()
	r.DeliveryLatency.Observe(latency.Seconds())
}

// ObservePublish counts an outbox publish attempt.
func (r *Recorder) ObservePublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.OutboxPublished.WithLabelValues(result).Inc()
}
