// Package decoder splits a raw Ethernet frame into its protocol layers.
package decoder

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	// ErrLinkLayer means the Ethernet envelope itself could not be parsed.
	ErrLinkLayer = errors.New("ethermirror: could not unpack packet")
	// ErrNoTransport means the frame carries no TCP, UDP or other transport
	// layer that could be decoded.
	ErrNoTransport = errors.New("ethermirror: no transport field associated with this packet")
)

// TransportVariant classifies the transport layer of a frame.
type TransportVariant int

const (
	TransportNone TransportVariant = iota
	TransportTCP
	TransportUDP
	TransportOther
)

func (v TransportVariant) String() string {
	switch v {
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	case TransportOther:
		return "other"
	default:
		return "none"
	}
}

// View is the layered decomposition of one frame. Every layer and the
// payload alias the frame bytes, so a View must not outlive the frame it was
// decoded from.
type View struct {
	Link      *layers.Ethernet
	VLANs     []*layers.Dot1Q // outer tag first
	IP        gopacket.NetworkLayer
	Transport gopacket.TransportLayer
	Payload   []byte

	// Err is set when decoding stopped early below the link layer. Layers
	// decoded up to that point are still valid.
	Err error
}

// Variant reports which transport the frame carries.
func (v *View) Variant() TransportVariant {
	switch v.Transport.(type) {
	case nil:
		return TransportNone
	case *layers.TCP:
		return TransportTCP
	case *layers.UDP:
		return TransportUDP
	default:
		return TransportOther
	}
}

// Decoder decodes raw frames into layered views.
type Decoder interface {
	Decode(frame []byte) (*View, error)
}

// FrameDecoder is a stateless Decoder; concurrent use is safe.
type FrameDecoder struct {
	opts gopacket.DecodeOptions
}

// New returns a FrameDecoder that decodes eagerly without copying the frame.
func New() *FrameDecoder {
	return &FrameDecoder{
		opts: gopacket.DecodeOptions{Lazy: false, NoCopy: true},
	}
}

// Decode parses link, VLAN, IP and transport layers from frame. It never
// panics and never modifies frame.
//
// A nil View with ErrLinkLayer means nothing could be decoded. A View with
// ErrNoTransport means the outer layers are valid but no TCP or UDP layer
// was found; View.Transport is still set for other transports.
func (d *FrameDecoder) Decode(frame []byte) (view *View, err error) {
	defer func() {
		if r := recover(); r != nil {
			view, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrLinkLayer, r)
		}
	}()

	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrLinkLayer)
	}

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, d.opts)
	eth, ok := pkt.LinkLayer().(*layers.Ethernet)
	if !ok {
		if el := pkt.ErrorLayer(); el != nil {
			return nil, fmt.Errorf("%w: %w", ErrLinkLayer, el.Error())
		}
		return nil, fmt.Errorf("%w: not an ethernet frame", ErrLinkLayer)
	}

	view = &View{Link: eth}
	var last gopacket.Layer = eth
	for _, l := range pkt.Layers() {
		switch l := l.(type) {
		case *layers.Dot1Q:
			view.VLANs = append(view.VLANs, l)
			if view.IP == nil {
				last = l
			}
		case *layers.IPv4:
			if view.IP == nil {
				view.IP = l
			}
		case *layers.IPv6:
			if view.IP == nil {
				view.IP = l
			}
		}
	}
	view.Transport = pkt.TransportLayer()
	if el := pkt.ErrorLayer(); el != nil {
		view.Err = el.Error()
	}

	switch {
	case view.Transport != nil:
		view.Payload = view.Transport.LayerPayload()
	case view.IP != nil:
		view.Payload = view.IP.LayerPayload()
	default:
		view.Payload = last.LayerPayload()
	}

	switch view.Transport.(type) {
	case *layers.TCP, *layers.UDP:
		return view, nil
	case nil:
		return view, ErrNoTransport
	default:
		// SCTP, UDPLite and friends carry no TCP/UDP header to report.
		return view, fmt.Errorf("%w: %s", ErrNoTransport, view.Transport.LayerType())
	}
}
