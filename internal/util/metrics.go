package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of committed checkouts",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout transactions",
		Buckets: prometheus.DefBuckets,
	})

	CropsListedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crops_listed_total",
		Help: "Total number of crop listings created",
	})

	RatingsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratings_saved_total",
		Help: "Total number of crop ratings saved",
	})

	SalesNotifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_notified_total",
		Help: "Total number of sold lines handled by the sales worker",
	})

	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signups_total",
		Help: "Total number of user signups",
	}, []string{"role"})

	LoginsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logins_failed_total",
		Help: "Total number of rejected login attempts",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
