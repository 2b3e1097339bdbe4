// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package filter

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildIPv4Frame(t *testing.T, ethType layers.EthernetType) []byte {
	t.Helper()

	eth := layers.Ethernet{
		SrcMAC:       []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: ethType,
	}
	ip := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    []byte{192, 168, 1, 1},
		DstIP:    []byte{192, 168, 1, 2},
	}
	tcp := layers.TCP{SrcPort: 12345, DstPort: 80}
	tcp.SetNetworkLayerForChecksum(&ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &tcp, gopacket.Payload("hi")); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return buf.Bytes()
}

func TestEtherTypeProgramMatches(t *testing.T) {
	frame := buildIPv4Frame(t, layers.EthernetTypeIPv4)

	prog, err := EtherTypeProgram(uint16(layers.EthernetTypeIPv4), len(frame))
	if err != nil {
		t.Fatalf("new program: %v", err)
	}
	if n := prog.Execute(frame); n == 0 {
		t.Error("expected IPv4 frame to pass the EtherType filter")
	}
}

func TestEtherTypeProgramRejects(t *testing.T) {
	frame := buildIPv4Frame(t, layers.EthernetTypeIPv6)

	prog, err := EtherTypeProgram(uint16(layers.EthernetTypeIPv4), len(frame))
	if err != nil {
		t.Fatalf("new program: %v", err)
	}
	if n := prog.Execute(frame); n != 0 {
		t.Error("expected IPv6 frame to be rejected by the IPv4 EtherType filter")
	}
}
