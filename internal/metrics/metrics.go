// Package metrics - счётчики Prometheus бота.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Updates - входящие обновления Telegram по типу (message, callback, other).
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pogoda",
		Name:      "updates_total",
		Help:      "Incoming Telegram updates by kind.",
	}, []string{"kind"})

	// UpstreamRequests - запросы к Open-Meteo по API и результату.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pogoda",
		Name:      "upstream_requests_total",
		Help:      "Requests to Open-Meteo by api and outcome.",
	}, []string{"api", "outcome"})

	// Deliveries - отправленные сообщения по источнику (interactive, scheduled) и результату.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pogoda",
		Name:      "deliveries_total",
		Help:      "Messages sent to users by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	// DailyJobs - число активных ежедневных рассылок.
	DailyJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pogoda",
		Name:      "daily_jobs",
		Help:      "Active daily forecast jobs.",
	})
)
