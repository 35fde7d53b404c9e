// Package metrics exposes Prometheus metrics for distributions, stock levels,
// remote syncs and HTTP requests.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/source"
)

// Rejection reasons.
const (
	ReasonInsufficientStock  = "insufficient_stock"
	ReasonUnknownBeneficiary = "unknown_beneficiary"
	ReasonInvalid            = "invalid"
	ReasonOther              = "other"
)

// Metrics holds every collector of the service.
type Metrics struct {
	DistributionsCreated prometheus.Counter
	DistributionRejected *prometheus.CounterVec
	Beneficiaries        prometheus.Gauge
	Items                prometheus.Gauge
	LowStockItems        prometheus.Gauge
	CriticalStockItems   prometheus.Gauge
	SyncRuns             *prometheus.CounterVec
	SyncDuration         *prometheus.HistogramVec
	SyncSkipped          *prometheus.GaugeVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DistributionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "ataa_distributions_created_total",
			Help: "Total number of distributions recorded",
		}),
		DistributionRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ataa_distributions_rejected_total",
			Help: "Distribution requests rejected, by reason",
		}, []string{"reason"}),
		Beneficiaries: f.NewGauge(prometheus.GaugeOpts{
			Name: "ataa_beneficiaries",
			Help: "Number of registered beneficiaries",
		}),
		Items: f.NewGauge(prometheus.GaugeOpts{
			Name: "ataa_inventory_items",
			Help: "Number of inventory items",
		}),
		LowStockItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "ataa_inventory_low_stock_items",
			Help: "Items at or below their minimum level",
		}),
		CriticalStockItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "ataa_inventory_critical_items",
			Help: "Items below half their minimum level",
		}),
		SyncRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ataa_sync_runs_total",
			Help: "Remote imports, by collection and result",
		}, []string{"collection", "result"}),
		SyncDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ataa_sync_duration_seconds",
			Help:    "Duration of remote imports",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"collection"}),
		SyncSkipped: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ataa_sync_skipped_records",
			Help: "Records skipped by the last successful import",
		}, []string{"collection"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ataa_http_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Attach keeps the ledger gauges current and counts recorded distributions.
// The returned function detaches the collectors.
func (m *Metrics) Attach(inv *ledger.Inventory, reg *ledger.Registry, dist *ledger.Distributions) func() {
	m.refreshStock(inv)
	m.Beneficiaries.Set(float64(reg.Len()))

	unsubs := []func(){
		inv.Subscribe(func(ledger.Change[model.Item]) { m.refreshStock(inv) }),
		reg.Subscribe(func(ledger.Change[model.Beneficiary]) { m.Beneficiaries.Set(float64(reg.Len())) }),
		dist.Subscribe(func(c ledger.Change[model.Distribution]) {
			if c.Op == ledger.OpCreate {
				m.DistributionsCreated.Inc()
			}
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (m *Metrics) refreshStock(inv *ledger.Inventory) {
	items := inv.Items()
	var low, critical int
	for _, item := range items {
		if item.IsLowStock() {
			low++
		}
		if item.IsCritical() {
			critical++
		}
	}
	m.Items.Set(float64(len(items)))
	m.LowStockItems.Set(float64(low))
	m.CriticalStockItems.Set(float64(critical))
}

// ObserveRejection counts a failed distribution request.
func (m *Metrics) ObserveRejection(err error) {
	m.DistributionRejected.WithLabelValues(RejectionReason(err)).Inc()
}

// RejectionReason maps a distribution error to its metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, ledger.ErrUnknownBeneficiary):
		return ReasonUnknownBeneficiary
	case errors.Is(err, model.ErrInvalid):
		return ReasonInvalid
	default:
		return ReasonOther
	}
}

// ObserveSync records a finished remote import. It matches source.Syncer.OnResult.
func (m *Metrics) ObserveSync(r source.Result) {
	collection := string(r.Collection)
	result := "success"
	if r.Err != nil {
		result = "failure"
	} else {
		m.SyncSkipped.WithLabelValues(collection).Set(float64(r.Skipped))
	}
	m.SyncRuns.WithLabelValues(collection, result).Inc()
	m.SyncDuration.WithLabelValues(collection).Observe(r.Duration.Seconds())
}

// ObserveRequest records the duration of an API request. route is the matched
// ServeMux pattern, which keeps label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
