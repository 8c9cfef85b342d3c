package decoder

import (
	"strings"

	"github.com/google/gopacket/layers"
)

const tcpFixedHeaderLen = 20

// TCPOptionsText returns the option bytes following the fixed TCP header as
// text. Invalid UTF-8 is replaced with U+FFFD.
func TCPOptionsText(tcp *layers.TCP) string {
	if len(tcp.Contents) <= tcpFixedHeaderLen {
		return ""
	}
	return lossy(tcp.Contents[tcpFixedHeaderLen:])
}

// UDPHeaderText returns the 8 UDP header bytes as text.
func UDPHeaderText(udp *layers.UDP) string {
	return lossy(udp.Contents)
}

// PayloadText returns payload as text.
func PayloadText(payload []byte) string {
	return lossy(payload)
}

func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
