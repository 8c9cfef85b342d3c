//go:build linux

package capture

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

func TestInboundFilter(t *testing.T) {
	raw, err := inboundFilter()
	require.NoError(t, err)
	require.Len(t, raw, 4)

	insns, allDecoded := bpf.Disassemble(raw)
	require.True(t, allDecoded)
	assert.Equal(t, bpf.LoadExtension{Num: bpf.ExtType}, insns[0])
	assert.Equal(t, bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.PACKET_OUTGOING, SkipTrue: 1}, insns[1])
	assert.Equal(t, bpf.RetConstant{Val: 0}, insns[3])
}

func TestSocketKind(t *testing.T) {
	_, lt, err := socketKind("raw")
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, lt)

	_, lt, err = socketKind("dgram")
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeLinuxSLL, lt)

	_, _, err = socketKind("cooked")
	assert.Error(t, err)
}

func TestFactorySupportsAFPacketOnLinux(t *testing.T) {
	assert.True(t, HandleFactory().IsTypeSupported(TypeAFPacket))
}
