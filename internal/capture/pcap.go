package capture

import (
	"net"

	"github.com/google/gopacket/pcap"
)

// openPCAP opens a libpcap handle in immediate mode so Receive returns as
// soon as a frame is available.
func openPCAP(ifi net.Interface, opts *Options) (Handle, error) {
	inactive, err := pcap.NewInactiveHandle(ifi.Name)
	if err != nil {
		return nil, err
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
		return nil, err
	}
	if err := inactive.SetPromisc(opts.Promiscuous); err != nil {
		return nil, err
	}
	if err := inactive.SetTimeout(pcap.BlockForever); err != nil {
		return nil, err
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, err
	}
	if opts.BufferSizeMB > 0 {
		if err := inactive.SetBufferSize(opts.BufferSizeMB * 1024 * 1024); err != nil {
			return nil, err
		}
	}

	h, err := inactive.Activate()
	if err != nil {
		return nil, err
	}
	if opts.InboundOnly {
		if err := h.SetDirection(pcap.DirectionIn); err != nil {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}
