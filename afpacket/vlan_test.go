// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"encoding/binary"
	"testing"

	"github.com/yerden/go-afpacket/internal/tpacket"
)

func TestShouldReinsertVLAN(t *testing.T) {
	assert := newAssert(t, true)

	assert(shouldReinsertVLAN(0, 100, 14))
	assert(shouldReinsertVLAN(tpacket.StatusVlanValid, 0, 14))
	assert(!shouldReinsertVLAN(0, 0, 14))
	assert(!shouldReinsertVLAN(0, 100, 10)) // too little payload for a MAC pair
}

func TestReinsertVLANTag(t *testing.T) {
	assert := newAssert(t, true)

	const mac = 4
	buf := make([]byte, mac+2*tpacket.EthAlen+2)
	macs := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
	}
	copy(buf[mac:], macs)
	binary.BigEndian.PutUint16(buf[mac+2*tpacket.EthAlen:], 0x0800)

	const tci = 0x0064
	const tpid = 0x8100

	newMac := reinsertVLANTag(buf, mac, tci, tpid)
	assert(newMac == mac-tpacket.VlanTagLen)

	assert(buf[newMac] == macs[0])
	for i, b := range macs {
		assert(buf[newMac+i] == b)
	}

	tagOff := newMac + 2*tpacket.EthAlen
	assert(binary.BigEndian.Uint16(buf[tagOff:]) == tpid)
	assert(binary.BigEndian.Uint16(buf[tagOff+2:]) == tci)
}
