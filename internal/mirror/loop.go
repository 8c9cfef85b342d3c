// Package mirror runs the receive, retransmit and decode cycle on one
// datalink channel.
package mirror

import (
	"context"

	"github.com/google/gopacket/layers"

	"firestige.xyz/ethermirror/internal/capture"
	"firestige.xyz/ethermirror/internal/decoder"
	"firestige.xyz/ethermirror/internal/log"
	"firestige.xyz/ethermirror/internal/metrics"
)

// Loop owns the channel and the decoder. It is single-threaded: frames
// and views never outlive one Step.
type Loop struct {
	ch     capture.Channel
	dec    decoder.Decoder
	logger log.Logger
	name   string
}

// Option customises a Loop.
type Option func(*Loop)

// WithInterfaceName sets the interface label used for metrics.
func WithInterfaceName(name string) Option {
	return func(l *Loop) { l.name = name }
}

func New(ch capture.Channel, dec decoder.Decoder, logger log.Logger, opts ...Option) *Loop {
	l := &Loop{ch: ch, dec: dec, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run calls Step until ctx is done. ctx is only checked between frames, so
// a blocked Receive delays the return until the next frame or timeout.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			st := l.ch.Stats()
			l.logger.WithFields(log.Fields{
				"received":       st.FramesReceived,
				"sent":           st.FramesSent,
				"receive_errors": st.ReceiveErrors,
				"send_errors":    st.SendErrors,
			}).Info("Capture loop stopped")
			return ctx.Err()
		default:
		}
		l.Step()
	}
}

// Step handles one frame: receive it, send an identical copy back out, then
// decode the received bytes and log each layer. Decoding happens after the
// send, so it can neither delay nor alter the retransmitted frame.
func (l *Loop) Step() {
	frame, err := l.ch.Receive()
	if err != nil {
		if capture.IsTimeout(err) {
			metrics.ReceiveErrorsTotal.WithLabelValues(l.name, metrics.KindTimeout).Inc()
			l.logger.WithError(err).Warn("An error occurred while reading")
			return
		}
		metrics.ReceiveErrorsTotal.WithLabelValues(l.name, metrics.KindOther).Inc()
		l.logger.WithError(err).Error("An error occurred while reading")
		return
	}
	metrics.FramesReceivedTotal.WithLabelValues(l.name).Inc()

	if err := l.ch.Send(len(frame), func(buf []byte) { copy(buf, frame) }); err != nil {
		metrics.SendErrorsTotal.WithLabelValues(l.name).Inc()
		l.logger.WithError(err).WithField("length", len(frame)).Error("An error occurred while sending")
	} else {
		metrics.FramesSentTotal.WithLabelValues(l.name).Inc()
	}

	l.inspect(frame)
}

func (l *Loop) inspect(frame []byte) {
	view, err := l.dec.Decode(frame)
	if view == nil {
		metrics.DecodeAnomaliesTotal.WithLabelValues(l.name, metrics.KindLinkLayer).Inc()
		l.logger.WithError(err).WithField("length", len(frame)).Error("Could not unpack packet")
		return
	}

	l.logger.WithFields(linkFields(view.Link)).Info("Link")
	l.logger.WithFields(vlanFields(view.VLANs)).Info("VLAN")
	l.logger.WithFields(ipFields(view.IP)).Info("IP")
	l.logger.WithFields(transportFields(view.Transport)).Info("Transport")
	l.logger.WithField("payload", decoder.PayloadText(view.Payload)).Info("Payload")

	variant := view.Variant()
	metrics.TransportFramesTotal.WithLabelValues(l.name, variant.String()).Inc()

	if err != nil {
		metrics.DecodeAnomaliesTotal.WithLabelValues(l.name, metrics.KindNoTransport).Inc()
		entry := l.logger.WithError(err)
		if view.Err != nil {
			entry = entry.WithField("cause", view.Err.Error())
		}
		entry.Error("No transport field associated with this packet")
		return
	}

	switch t := view.Transport.(type) {
	case *layers.TCP:
		l.logger.WithField("options", decoder.TCPOptionsText(t)).Info("TCP Header")
	case *layers.UDP:
		l.logger.WithField("header", decoder.UDPHeaderText(t)).Info("UDP Header")
	}
}
