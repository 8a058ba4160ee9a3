package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events published to the broker",
		},
		[]string{"event"},
	)
	eventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Events acknowledged after successful handling",
		},
		[]string{"event"},
	)
	eventsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_failed_total",
			Help: "Events whose handler returned an error",
		},
		[]string{"event"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events acknowledged without handling (unknown kind or malformed body)",
		},
	)
	consumerReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consumer_reconnects_total",
			Help: "Broker reconnect attempts by the consumer",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished)
	prometheus.MustRegister(eventsConsumed)
	prometheus.MustRegister(eventsFailed)
	prometheus.MustRegister(eventsDropped)
	prometheus.MustRegister(consumerReconnects)
}
