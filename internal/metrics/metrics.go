// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts frames read from the datalink channel
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethermirror_frames_received_total",
			Help: "Total number of frames received",
		},
		[]string{"interface"},
	)

	// FramesSentTotal counts frames retransmitted on the same channel
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethermirror_frames_sent_total",
			Help: "Total number of frames retransmitted",
		},
		[]string{"interface"},
	)

	// ReceiveErrorsTotal counts failed reads, split by timeout vs. other
	ReceiveErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethermirror_receive_errors_total",
			Help: "Total number of receive errors",
		},
		[]string{"interface", "kind"},
	)

	// SendErrorsTotal counts failed retransmissions
	SendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethermirror_send_errors_total",
			Help: "Total number of send errors",
		},
		[]string{"interface"},
	)

	// DecodeAnomaliesTotal counts frames whose decode stopped early
	DecodeAnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethermirror_decode_anomalies_total",
			Help: "Total number of frames that could not be fully decoded",
		},
		[]string{"interface", "kind"},
	)

	// TransportFramesTotal counts decoded frames by transport variant
	TransportFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethermirror_transport_frames_total",
			Help: "Total number of decoded frames by transport variant",
		},
		[]string{"interface", "variant"},
	)
)

// Label values for ReceiveErrorsTotal and DecodeAnomaliesTotal.
const (
	KindTimeout     = "timeout"
	KindOther       = "other"
	KindLinkLayer   = "link_layer"
	KindNoTransport = "no_transport"
)
