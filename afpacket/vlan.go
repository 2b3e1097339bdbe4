// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"encoding/binary"
	"unsafe"

	"github.com/yerden/go-afpacket/internal/tpacket"
)

const vlanTPID = 0x8100

// shouldReinsertVLAN reports whether a delivered frame carries a
// VLAN tag the NIC stripped and that the ring engine must reinsert,
// per §4.5 step 4: either the kernel-reported TCI is nonzero, or the
// kernel explicitly flagged TP_STATUS_VLAN_VALID, and there is enough
// captured payload to hold a destination+source MAC pair.
func shouldReinsertVLAN(status uint32, tci uint16, snaplen int) bool {
	if snaplen < 2*tpacket.EthAlen {
		return false
	}
	return tci != 0 || status&tpacket.StatusVlanValid != 0
}

// reinsertVLANTag is a pure function over a byte buffer: it shifts
// the destination+source MAC pair at buf[mac:mac+2*ETH_ALEN] left by
// 4 bytes into the caller-reserved headroom and writes a 4-byte
// 802.1Q tag (TPID, TCI, both network byte order) in the gap created
// at the original location. buf must have at least 4 bytes available
// immediately before offset mac (the PACKET_RESERVE headroom).
//
// It returns the new offset (mac-4) at which the reconstructed frame
// now starts. Removing the 4 tag bytes at offset 2*ETH_ALEN of the
// reconstructed frame gives back the original kernel frame bytes
// (round-trip property, §8).
func reinsertVLANTag(buf []byte, mac int, tci, tpid uint16) (newMac int) {
	copy(buf[mac-tpacket.VlanTagLen:mac-tpacket.VlanTagLen+2*tpacket.EthAlen], buf[mac:mac+2*tpacket.EthAlen])
	tagOff := mac + 2*tpacket.EthAlen - tpacket.VlanTagLen
	binary.BigEndian.PutUint16(buf[tagOff:], tpid)
	binary.BigEndian.PutUint16(buf[tagOff+2:], tci)
	return mac - tpacket.VlanTagLen
}

// applyVLANReinsertion performs the in-place VLAN reconstruction
// described by §4.5 step 4 directly over a ring entry's mapped frame
// slot. It returns the new effective data offset (mac) and whether
// reinsertion was performed.
func applyVLANReinsertion(hdr tpacket.Header, frameSize int) (newMac int, applied bool) {
	status := hdr.Status()
	snaplen := int(hdr.Snaplen())
	mac := int(hdr.MacOffset())

	if !shouldReinsertVLAN(status, hdr.VlanTCI(), snaplen) {
		return mac, false
	}
	if mac < tpacket.VlanTagLen || mac+snaplen > frameSize {
		return mac, false
	}

	buf := unsafe.Slice((*byte)(hdr.Raw()), frameSize)

	tpid := uint16(vlanTPID)
	if status&tpacket.StatusVlanTPIDVal != 0 && hdr.VlanTPID() != 0 {
		tpid = hdr.VlanTPID()
	}

	newMacOff := reinsertVLANTag(buf, mac, hdr.VlanTCI(), tpid)

	hdr.SetMacOffset(uint16(newMacOff))
	hdr.SetSnaplen(uint32(snaplen + tpacket.VlanTagLen))
	hdr.SetLen(hdr.Len() + tpacket.VlanTagLen)

	return newMacOff, true
}
