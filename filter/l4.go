package filter

// Layer-peeling TCP/UDP port filters: concrete Filter implementations
// a host can pass to Context.SetFilter without reaching for a textual
// BPF expression. Each walks Ethernet, an arbitrary stack of 802.1Q
// tags, and IPv4 before checking the transport port, matching the
// Ethernet/VLAN peeling the receive engine itself performs when
// reconstructing stripped tags.

import (
	"encoding/binary"
)

const (
	EthernetHdrLen = 14
	VlanHdrLen     = 4
	MplsHdrLen     = 4
)

const (
	MacAddrLen = 6
	IPv4HdrLen = 20
	TCPHdrLen  = 20
	UDPHdrLen  = 8
)

const (
	EtherTypeIPv4 = 0x0800
	EtherTypeVlan = 0x8100
	EtherTypeIPv6 = 0x86dd
)

func PeelEthernet(p []byte) (offset int, ok bool) {
	return EthernetHdrLen, len(p) >= EthernetHdrLen
}

func EthernetSrcAddr(p []byte) (addr [MacAddrLen]byte) {
	copy(addr[:], p[MacAddrLen:])
	return
}

func EthernetDstAddr(p []byte) (addr [MacAddrLen]byte) {
	copy(addr[:], p)
	return
}

func EthernetEtherType(p []byte) (n uint16) {
	return binary.BigEndian.Uint16(p[2*MacAddrLen:])
}

func PeelVlan(p []byte) (offset int, ok bool) {
	return VlanHdrLen, len(p) >= VlanHdrLen
}

func VlanEtherType(p []byte) (n uint16) {
	return binary.BigEndian.Uint16(p)
}

func PeelMpls(p []byte) (offset int, ok bool) {
	return MplsHdrLen, len(p) >= MplsHdrLen
}

func PeelIPv4(p []byte) (offset int, ok bool) {
	if len(p) < IPv4HdrLen {
		// IPv4 header should contain at least 20 bytes
		return
	}

	var ver int
	ver, offset = int(p[0]&0xf0)>>4, int(p[0]&0xf)<<2

	if ver != 4 || offset < IPv4HdrLen {
		// mangled IPv4 version or header length
		return
	}

	// final check for total length
	return offset, len(p) >= int(binary.BigEndian.Uint16(p[2:4]))
}

func IPv4SrcAddr(p []byte, addr []byte) {
	copy(addr, p[12:16])
}

func IPv4DstAddr(p []byte, addr []byte) {
	copy(addr, p[16:20])
}

func IPv4Proto(p []byte) byte {
	return p[9]
}

func PeelTCP(p []byte) (offset int, ok bool) {
	if len(p) < TCPHdrLen {
		return
	}
	offset = int(p[12]&0xf0) >> 2
	return offset, len(p) >= offset
}

func TCPSrcPort(p []byte) uint16 {
	return binary.BigEndian.Uint16(p[0:2])
}

func TCPDstPort(p []byte) uint16 {
	return binary.BigEndian.Uint16(p[2:4])
}

func PeelUDP(p []byte) (offset int, ok bool) {
	if len(p) < UDPHdrLen {
		return
	}
	totalLen := int(binary.BigEndian.Uint16(p[4:6]))
	return UDPHdrLen, len(p) >= totalLen && totalLen >= UDPHdrLen
}

func UDPSrcPort(p []byte) uint16 {
	return binary.BigEndian.Uint16(p[0:2])
}

func UDPDstPort(p []byte) uint16 {
	return binary.BigEndian.Uint16(p[2:4])
}

// peelToL4 walks a reconstructed frame (Ethernet, any stack of 802.1Q
// tags reinserted by the receive engine's VLAN dispatch, then IPv4)
// and returns the IPv4 protocol number plus the remaining bytes
// starting at the transport header. It reports ok=false for anything
// it can't fully peel: truncated headers, IPv6 (not carried by this
// fallback), or non-IPv4 EtherTypes.
func peelToL4(p []byte) (proto byte, rest []byte, ok bool) {
	offset, peeled := PeelEthernet(p)
	if !peeled {
		return 0, nil, false
	}
	eth, p := p[:offset], p[offset:]
	etherType := EthernetEtherType(eth)

	for etherType == EtherTypeVlan {
		if offset, peeled = PeelVlan(p); !peeled {
			return 0, nil, false
		}
		eth, p = p[:offset], p[offset:]
		etherType = VlanEtherType(eth)
	}

	if etherType != EtherTypeIPv4 {
		return 0, nil, false
	}
	if offset, peeled = PeelIPv4(p); !peeled {
		return 0, nil, false
	}
	ip, p := p[:offset], p[offset:]
	return IPv4Proto(ip), p, true
}

// TCPPortFilter matches IPv4/TCP frames with port as either the
// source or destination port, after the same Ethernet/VLAN/IPv4
// peeling the receive engine performs when reconstructing stripped
// 802.1Q tags. It is the in-module fallback the receive engine can
// fall back on in place of a compiled BPF program.
func TCPPortFilter(port uint16) FilterFunc {
	const tcpProto = 6
	return func(p []byte) int {
		proto, rest, ok := peelToL4(p)
		if !ok || proto != tcpProto {
			return 0
		}
		offset, ok := PeelTCP(rest)
		if !ok {
			return 0
		}
		tcp := rest[:offset]
		if TCPSrcPort(tcp) != port && TCPDstPort(tcp) != port {
			return 0
		}
		return 1
	}
}

// UDPPortFilter matches IPv4/UDP frames with port as either the
// source or destination port, using the same peeling as
// TCPPortFilter.
func UDPPortFilter(port uint16) FilterFunc {
	const udpProto = 17
	return func(p []byte) int {
		proto, rest, ok := peelToL4(p)
		if !ok || proto != udpProto {
			return 0
		}
		offset, ok := PeelUDP(rest)
		if !ok {
			return 0
		}
		udp := rest[:offset]
		if UDPSrcPort(udp) != port && UDPDstPort(udp) != port {
			return 0
		}
		return 1
	}
}
