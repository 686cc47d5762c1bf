package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "netsync"

// metrics holds the Prometheus collectors of one session.
type metrics struct {
	packetsReceived *prometheus.CounterVec
	packetsDropped  *prometheus.CounterVec
	packetsSent     *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec
	players         prometheus.Gauge
	objects         prometheus.Gauge
	unhealthy       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_received_total",
			Help:      "Total number of packets dispatched successfully",
		}, []string{"channel", "tag"}),

		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_dropped_total",
			Help:      "Total number of packets dropped",
		}, []string{"channel", "reason"}),

		packetsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_sent_total",
			Help:      "Total number of packets sent",
		}, []string{"channel", "tag"}),

		bytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_received_total",
			Help:      "Total payload bytes received",
		}, []string{"channel"}),

		players: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "players",
			Help:      "Number of players in the registry",
		}),

		objects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "tracked_objects",
			Help:      "Number of transform-synced objects in the registry",
		}),

		unhealthy: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unhealthy_events_total",
			Help:      "Total number of health events published",
		}, []string{"channel", "reason"}),
	}
}
