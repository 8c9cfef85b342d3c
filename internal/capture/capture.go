// Package capture opens the bidirectional link-layer channel that frames are
// read from and mirrored back onto.
package capture

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// CaptureType selects the capture backend.
type CaptureType string

const (
	TypePCAP     CaptureType = "pcap"
	TypeAFPacket CaptureType = "afpacket"
)

var (
	ErrChannelOpen        = errors.New("ethermirror: an error occurred when creating the datalink channel")
	ErrUnhandledChannel   = errors.New("ethermirror: unhandled channel type")
	ErrUnsupportedBackend = errors.New("ethermirror: unsupported capture type")
	ErrInvalidLength      = errors.New("ethermirror: invalid frame length")
)

// Channel is a send half and a receive half bound to one interface.
type Channel interface {
	// Receive blocks until one frame is available. The returned slice is
	// only valid until the next call to Receive.
	Receive() ([]byte, error)

	// Send allocates a buffer of exactly length bytes, lets build fill it
	// and transmits it once.
	Send(length int, build func(buf []byte)) error

	// LinkType reports the channel kind.
	LinkType() layers.LinkType

	Stats() Stats

	Close() error
}

// Stats counts channel activity since Open.
type Stats struct {
	FramesReceived uint64
	FramesSent     uint64
	ReceiveErrors  uint64
	SendErrors     uint64
}

// Handle is the primitive a backend hands to the channel. *pcap.Handle
// satisfies it as is.
type Handle interface {
	ZeroCopyReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	WritePacketData(data []byte) error
	LinkType() layers.LinkType
	Close()
}

type channel struct {
	h     Handle
	iface string

	received   atomic.Uint64
	sent       atomic.Uint64
	recvErrors atomic.Uint64
	sendErrors atomic.Uint64
}

func newChannel(h Handle, iface string) *channel {
	return &channel{h: h, iface: iface}
}

func (c *channel) Receive() ([]byte, error) {
	data, _, err := c.h.ZeroCopyReadPacketData()
	if err != nil {
		c.recvErrors.Add(1)
		return nil, fmt.Errorf("read frame on %s: %w", c.iface, err)
	}
	c.received.Add(1)
	return data, nil
}

func (c *channel) Send(length int, build func(buf []byte)) error {
	if length <= 0 {
		c.sendErrors.Add(1)
		return fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	buf := make([]byte, length)
	build(buf)
	if err := c.h.WritePacketData(buf); err != nil {
		c.sendErrors.Add(1)
		return fmt.Errorf("write frame on %s: %w", c.iface, err)
	}
	c.sent.Add(1)
	return nil
}

func (c *channel) LinkType() layers.LinkType {
	return c.h.LinkType()
}

func (c *channel) Stats() Stats {
	return Stats{
		FramesReceived: c.received.Load(),
		FramesSent:     c.sent.Load(),
		ReceiveErrors:  c.recvErrors.Load(),
		SendErrors:     c.sendErrors.Load(),
	}
}

func (c *channel) Close() error {
	c.h.Close()
	return nil
}

// timeoutErrors are read errors that only mean no frame arrived in time.
var timeoutErrors = []error{
	pcap.NextErrorTimeoutExpired,
	os.ErrDeadlineExceeded,
}

// IsTimeout reports whether err is a benign poll/read timeout.
func IsTimeout(err error) bool {
	for _, target := range timeoutErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Open builds the configured backend on ifi. Only Ethernet channels are
// accepted; anything else is closed again and reported as
// ErrUnhandledChannel.
func Open(ifi net.Interface, opts *Options) (Channel, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	h, err := HandleFactory().CreateHandle(ifi, opts)
	if err != nil {
		return nil, err
	}
	if lt := h.LinkType(); lt != layers.LinkTypeEthernet {
		h.Close()
		return nil, fmt.Errorf("%w: %s on %s", ErrUnhandledChannel, lt, ifi.Name)
	}
	return newChannel(h, ifi.Name), nil
}
