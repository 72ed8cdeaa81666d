package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters for the order lifecycle engine.
type OrderMetrics struct {
	created        *prometheus.CounterVec
	confirmations  *prometheus.CounterVec
	retries        prometheus.Counter
	stockConflicts prometheus.Counter
}

// NewOrderMetrics registers the order engine metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labelled by payment method.",
	}, []string{"payment_method"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmation outcomes.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_confirmation_retries_total",
		Help: "Transaction retries triggered by storage write conflicts.",
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Order creations rejected for insufficient stock.",
	})
	reg.MustRegister(created, confirmations, retries, stockConflicts)
	return &OrderMetrics{
		created:        created,
		confirmations:  confirmations,
		retries:        retries,
		stockConflicts: stockConflicts,
	}
}

// IncCreated counts a successful order creation.
func (m *OrderMetrics) IncCreated(paymentMethod string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncConfirmation counts a payment confirmation outcome.
func (m *OrderMetrics) IncConfirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRetry counts a conflict-driven transaction retry.
func (m *OrderMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

// IncStockConflict counts an insufficient-stock rejection.
func (m *OrderMetrics) IncStockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
