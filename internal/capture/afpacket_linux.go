//go:build linux

package capture

import (
	"fmt"
	"net"
	"os"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

func init() {
	timeoutErrors = append(timeoutErrors, afpacket.ErrTimeout, unix.EAGAIN)
}

func registerPlatformBackends(f *CaptureHandleFactory) {
	f.register(TypeAFPacket, openAFPacket)
}

// tpacketHandle AF_PACKET 抓包句柄, TPacket 本身不知道链路类型
type tpacketHandle struct {
	*afpacket.TPacket
	linkType layers.LinkType
}

func (h *tpacketHandle) LinkType() layers.LinkType {
	return h.linkType
}

func socketKind(socketType string) (afpacket.OptSocketType, layers.LinkType, error) {
	switch socketType {
	case "", "raw":
		return afpacket.SocketRaw, layers.LinkTypeEthernet, nil
	case "dgram":
		return afpacket.SocketDgram, layers.LinkTypeLinuxSLL, nil
	default:
		return 0, layers.LinkTypeNull, fmt.Errorf("unknown socket type %q", socketType)
	}
}

// openAFPacket 打开 TPACKET_V3 环形缓冲区
func openAFPacket(ifi net.Interface, opts *Options) (Handle, error) {
	socketType, linkType, err := socketKind(opts.SocketType)
	if err != nil {
		return nil, err
	}

	frameSize, blockSize, numBlocks, err := computeRingSize(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("failed to compute frame size and blocks: %w", err)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(ifi.Name),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		// VLAN tags are stripped into ring metadata by the kernel; put them
		// back so the mirrored frame carries them.
		afpacket.OptAddVLANHeader(true),
		afpacket.OptPollTimeout(pcap.BlockForever),
		socketType,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, err
	}

	if opts.InboundOnly {
		filter, err := inboundFilter()
		if err == nil {
			err = tp.SetBPF(filter)
		}
		if err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to attach inbound filter: %w", err)
		}
	}
	return &tpacketHandle{TPacket: tp, linkType: linkType}, nil
}

// inboundFilter drops frames the host itself transmitted (pkttype
// PACKET_OUTGOING), so mirrored frames are not read back.
func inboundFilter() ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		bpf.LoadExtension{Num: bpf.ExtType},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.PACKET_OUTGOING, SkipTrue: 1},
		bpf.RetConstant{Val: 0xffffffff},
		bpf.RetConstant{Val: 0},
	})
}
