// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"github.com/yerden/go-afpacket/internal/tpacket"
	"golang.org/x/sys/unix"
)

// layout describes the block/frame geometry of one ring, computed
// from a snaplen and a byte budget per the derivation in the ring
// layout planner.
type layout struct {
	frameSize     int
	blockSize     int
	framesPerBlk  int
	frameCount    int
	blockCount    int
}

// totalSize is the number of bytes the kernel will allocate for a
// ring built from this layout.
func (l layout) totalSize() int { return l.blockSize * l.blockCount }

// netOffset is the byte offset from the start of a frame's payload
// region to where the net-layer payload begins, i.e. past the
// TPACKET2 header, the trailing sockaddr_ll and a bare Ethernet
// header, with the 4-byte VLAN reinsertion headroom pre-reserved.
func netOffset(hdrlen int) int {
	hsll := tpacket.Align(hdrlen) + int(tpacket.SizeofSockaddrLL)
	return tpacket.Align(hsll+tpacket.EthHLen) + tpacket.VlanTagLen
}

// computeLayout derives a ring layout for the given snaplen, the
// kernel's negotiated TPACKET_HDRLEN, a byte budget for the whole
// ring, and a starting block order (block_size = page_size << order).
//
// This mirrors §4.1 verbatim: frame size accounts for the header,
// trailing sockaddr_ll, pre-reserved VLAN headroom and the Ethernet
// header; block size is doubled until it holds at least one frame;
// frame count is clamped down to an integral number of blocks.
func computeLayout(snaplen, hdrlen, budget, order int) (layout, error) {
	if snaplen <= 0 {
		return layout{}, newErr(KindConfig, "snaplen must be positive", nil)
	}
	if budget <= 0 {
		return layout{}, newErr(KindConfig, "ring budget must be positive", nil)
	}

	netoff := netOffset(hdrlen)
	frameSize := tpacket.Align(netoff - tpacket.EthHLen + snaplen)

	pageSize := unix.Getpagesize()
	blockSize := pageSize << uint(order)
	for blockSize < frameSize {
		blockSize <<= 1
	}

	framesPerBlk := blockSize / frameSize
	if framesPerBlk == 0 {
		return layout{}, newErr(KindOutOfMemory, "block too small to hold a single frame", nil)
	}

	frameCount := budget / frameSize
	if frameCount == 0 {
		return layout{}, newErr(KindOutOfMemory, "budget too small to hold a single frame", nil)
	}
	blockCount := frameCount / framesPerBlk
	if blockCount == 0 {
		return layout{}, newErr(KindOutOfMemory, "budget too small to hold a single block", nil)
	}
	frameCount = blockCount * framesPerBlk

	return layout{
		frameSize:    frameSize,
		blockSize:    blockSize,
		framesPerBlk: framesPerBlk,
		frameCount:   frameCount,
		blockCount:   blockCount,
	}, nil
}
