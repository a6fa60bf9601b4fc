// Package metrics holds the Prometheus collectors of the responder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	ReasonMalformed = "malformed"
	ReasonNoRoute   = "no_route"
	ReasonTransmit  = "transmit"
)

var (
	// FramesReceived counts frames pulled from the device
	FramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starecho_frames_received_total",
			Help: "Total number of frames received from the device",
		},
	)

	// FramesTransmitted counts replies written to the device
	FramesTransmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starecho_frames_transmitted_total",
			Help: "Total number of frames transmitted",
		},
	)

	// FramesDropped counts frames discarded before or while replying
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starecho_frames_dropped_total",
			Help: "Total number of frames dropped",
		},
		[]string{"reason"},
	)

	// Replies counts answered requests per protocol (arp, icmp, udp)
	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starecho_replies_total",
			Help: "Total number of replies built",
		},
		[]string{"protocol"},
	)

	// DeviceErrors counts peripheral failures per operation (receive, transmit)
	DeviceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starecho_device_errors_total",
			Help: "Total number of device errors",
		},
		[]string{"op"},
	)

	// CacheInsertFailures counts rejected neighbour cache inserts
	CacheInsertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starecho_cache_insert_failures_total",
			Help: "Total number of failed neighbour cache inserts",
		},
	)

	// CacheEntries tracks the neighbour cache occupancy
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starecho_cache_entries",
			Help: "Number of entries in the neighbour cache",
		},
	)

	// IdleSeconds accumulates the time the worker spent waiting for the line
	IdleSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starecho_idle_seconds_total",
			Help: "Total time the drain worker spent idle in seconds",
		},
	)
)
