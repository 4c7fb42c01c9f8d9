package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment-verification outcomes and activations.
type PaymentMetrics struct {
	verifications *prometheus.CounterVec
	activations   prometheus.Counter
	orders        *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment callback verifications by outcome.",
	}, []string{"outcome"})
	activations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscription_activations_total",
		Help: "Subscriptions activated after verified payment.",
	})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_orders_total",
		Help: "Gateway order creations by result.",
	}, []string{"result"})
	reg.MustRegister(verifications, activations, orders)
	return &PaymentMetrics{
		verifications: verifications,
		activations:   activations,
		orders:        orders,
	}
}

// IncVerification counts one verification with the given outcome label.
func (p *PaymentMetrics) IncVerification(outcome string) {
	if p == nil || p.verifications == nil {
		return
	}
	p.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncActivation counts one subscription activation.
func (p *PaymentMetrics) IncActivation() {
	if p == nil || p.activations == nil {
		return
	}
	p.activations.Inc()
}

// IncOrder counts one gateway order creation attempt.
func (p *PaymentMetrics) IncOrder(result string) {
	if p == nil || p.orders == nil {
		return
	}
	p.orders.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
