package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VariantCandidatesGenerated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "variant_candidates_generated",
		Help:    "Number of candidate rows produced per matrix regeneration",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	VariantsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "variants_created_total",
		Help: "Total number of variants created through bulk save",
	})

	CheckoutQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_quotes_total",
		Help: "Total number of checkout quotes computed",
	}, []string{"outcome"})

	CheckoutStaleResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_stale_responses_total",
		Help: "Responses discarded because a newer request was issued",
	}, []string{"kind"})

	VouchersAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vouchers_applied_total",
		Help: "Voucher applications by discount type",
	}, []string{"type"})

	ShippingQuoteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipping_quote_latency_seconds",
		Help:    "Latency of shipping fee quote requests",
		Buckets: prometheus.DefBuckets,
	})

	ShippingQuoteFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipping_quote_failed_total",
		Help: "Total number of failed shipping fee quotes",
	})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	}, []string{"payment_type"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed orders",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Total number of stock movements",
	}, []string{"direction"})

	StockMovementFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_failed_total",
		Help: "Total number of rejected stock movements",
	}, []string{"reason"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_dropped_total",
		Help: "Total number of consumed events skipped after exhausting retries",
	}, []string{"topic"})
)
