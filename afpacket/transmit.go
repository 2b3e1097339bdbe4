// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"encoding/binary"
	"unsafe"

	"github.com/yerden/go-afpacket/internal/ifreq"
	"github.com/yerden/go-afpacket/internal/tpacket"
	"golang.org/x/sys/unix"
)

// transmit sends data out egress, per §4.6.
//
// If egress has a TX ring (peer exists and a TX ring was fabricated),
// the frame is enqueued onto the TX ring's current entry and the
// kernel is kicked with a zero-byte send. Otherwise the frame is sent
// directly via sendto(), refreshing egress's cached source-address
// template with the outbound frame's Ethertype first.
func (ctx *Context) transmit(egress *instance, data []byte) error {
	if egress.hasTX {
		return ctx.transmitRing(egress, data)
	}
	return ctx.transmitPlain(egress, data)
}

func (ctx *Context) transmitRing(egress *instance, data []byte) error {
	ent := egress.tx.current()
	if ent.hdr.Status() != tpacket.StatusAvailable {
		return newErr(KindAgain, "tx ring full", nil)
	}

	hdrOff := tpacket.Align(egress.hdrlen)
	buf := unsafe.Slice((*byte)(ent.hdr.Raw()), egress.tx.lay.frameSize)
	if hdrOff+len(data) > len(buf) {
		return newErr(KindConfig, "frame too large for tx ring frame size", nil)
	}
	n := copy(buf[hdrOff:], data)

	ent.hdr.SetLen(uint32(n))
	ent.hdr.SetSnaplen(uint32(n))
	ent.hdr.SetMacOffset(uint16(hdrOff))
	ent.hdr.SetStatus(tpacket.StatusSendRequest)

	egress.tx.advance()

	if _, err := unix.Send(egress.fd, nil, 0); err != nil {
		return newErr(KindOS, "send (tx ring kick)", err)
	}
	return nil
}

func (ctx *Context) transmitPlain(egress *instance, data []byte) error {
	if len(data) < 14 {
		return newErr(KindConfig, "frame too short to hold an Ethernet header", nil)
	}
	ethertype := binary.BigEndian.Uint16(data[12:14])

	sa := ifreq.SockaddrLinklayerOf(egress.ifindex, htons(ethertype), egress.hwaddr)
	if err := unix.Sendto(egress.fd, data, 0, sa); err != nil {
		return newErr(KindOS, "sendto", err)
	}
	return nil
}

// Inject sends a frame as if it had originally ingressed through
// ingressIfindex, per §4.6's Inject operation. If reverse is true the
// frame is sent back out the same interface it arrived on; otherwise
// it is forwarded to that interface's bridge peer. Both selections
// require the matching instance to exist; ErrNoDevice is returned
// otherwise.
func (ctx *Context) Inject(ingressIfindex int, data []byte, reverse bool) error {
	idx := ctx.findByIfindex(ingressIfindex)
	if idx < 0 {
		return ErrNoDevice
	}

	egress := ctx.instances[idx]
	if !reverse {
		if ctx.instances[idx].peerIdx < 0 {
			return ErrNoDevice
		}
		egress = ctx.instances[ctx.instances[idx].peerIdx]
	}

	if err := ctx.transmit(egress, data); err != nil {
		return err
	}
	ctx.stats.PacketsInjected++
	return nil
}

func (ctx *Context) findByIfindex(ifindex int) int {
	for i, inst := range ctx.instances {
		if inst.ifindex == ifindex {
			return i
		}
	}
	return -1
}
