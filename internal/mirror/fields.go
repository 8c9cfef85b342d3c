package mirror

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/ethermirror/internal/log"
)

func linkFields(eth *layers.Ethernet) log.Fields {
	return log.Fields{
		"src":       eth.SrcMAC.String(),
		"dst":       eth.DstMAC.String(),
		"ethertype": eth.EthernetType.String(),
	}
}

func vlanFields(vlans []*layers.Dot1Q) log.Fields {
	if len(vlans) == 0 {
		return log.Fields{"vlan": "none"}
	}
	ids := make([]uint16, 0, len(vlans))
	for _, v := range vlans {
		ids = append(ids, v.VLANIdentifier)
	}
	outer := vlans[0]
	return log.Fields{
		"ids":      ids,
		"priority": outer.Priority,
		"dei":      outer.DropEligible,
		"next":     vlans[len(vlans)-1].Type.String(),
	}
}

func ipFields(ip gopacket.NetworkLayer) log.Fields {
	switch l := ip.(type) {
	case nil:
		return log.Fields{"ip": "none"}
	case *layers.IPv4:
		return log.Fields{
			"version":  4,
			"src":      l.SrcIP.String(),
			"dst":      l.DstIP.String(),
			"ttl":      l.TTL,
			"protocol": l.Protocol.String(),
			"length":   l.Length,
		}
	case *layers.IPv6:
		return log.Fields{
			"version":   6,
			"src":       l.SrcIP.String(),
			"dst":       l.DstIP.String(),
			"hop_limit": l.HopLimit,
			"next":      l.NextHeader.String(),
			"length":    l.Length,
		}
	default:
		flow := ip.NetworkFlow()
		return log.Fields{
			"layer": ip.LayerType().String(),
			"src":   flow.Src().String(),
			"dst":   flow.Dst().String(),
		}
	}
}

func transportFields(t gopacket.TransportLayer) log.Fields {
	switch l := t.(type) {
	case nil:
		return log.Fields{"transport": "none"}
	case *layers.TCP:
		return log.Fields{
			"protocol": "tcp",
			"src_port": uint16(l.SrcPort),
			"dst_port": uint16(l.DstPort),
			"seq":      l.Seq,
			"ack":      l.Ack,
			"flags":    tcpFlags(l),
			"window":   l.Window,
		}
	case *layers.UDP:
		return log.Fields{
			"protocol": "udp",
			"src_port": uint16(l.SrcPort),
			"dst_port": uint16(l.DstPort),
			"length":   l.Length,
		}
	default:
		flow := t.TransportFlow()
		return log.Fields{
			"protocol": t.LayerType().String(),
			"src":      flow.Src().String(),
			"dst":      flow.Dst().String(),
		}
	}
}

func tcpFlags(t *layers.TCP) string {
	flags := []struct {
		set  bool
		name byte
	}{
		{t.FIN, 'F'}, {t.SYN, 'S'}, {t.RST, 'R'}, {t.PSH, 'P'},
		{t.ACK, 'A'}, {t.URG, 'U'}, {t.ECE, 'E'}, {t.CWR, 'C'}, {t.NS, 'N'},
	}
	out := make([]byte, 0, len(flags))
	for _, f := range flags {
		if f.set {
			out = append(out, f.name)
		}
	}
	if len(out) == 0 {
		return "."
	}
	return string(out)
}
