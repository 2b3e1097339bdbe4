// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"unsafe"

	"github.com/yerden/go-afpacket/internal/tpacket"
	"golang.org/x/sys/unix"
)

// ringKind selects which of an instance's two possible rings (RX or
// TX) the fabricator is building.
type ringKind int

const (
	ringRX ringKind = iota
	ringTX
)

// entry is a handle over one frame slot in a mapped ring. Per DESIGN
// NOTES §9 this is a vector element with an implicit "next index",
// not an intrusively linked node: ring order is simply (i+1) mod n.
type entry struct {
	hdr tpacket.Header
}

// ring is the userspace view of one kernel packet ring (RX or TX),
// built over a slice of an instance's mmap'd region. It owns no
// memory itself; base is a sub-slice of Instance.mapped.
type ring struct {
	kind    ringKind
	lay     layout
	base    []byte
	entries []entry
	cursor  int // index of the next entry to inspect/use
}

// size returns the byte span this ring occupies in the instance's
// mapped region.
func (r *ring) size() int { return r.lay.totalSize() }

// at returns the entry at position i, wrapping modulo len(entries).
func (r *ring) at(i int) *entry { return &r.entries[i%len(r.entries)] }

// current returns the entry the cursor currently points at.
func (r *ring) current() *entry { return r.at(r.cursor) }

// advance moves the cursor to the next entry in ring order.
func (r *ring) advance() { r.cursor = (r.cursor + 1) % len(r.entries) }

// buildEntries populates r.entries by computing each frame's address
// from its (block, frame-within-block) position, per §4.2 step 4.
func (r *ring) buildEntries() {
	r.entries = make([]entry, r.lay.frameCount)
	base := unsafe.Pointer(&r.base[0])
	i := 0
	for b := 0; b < r.lay.blockCount; b++ {
		for f := 0; f < r.lay.framesPerBlk; f++ {
			off := uintptr(b*r.lay.blockSize + f*r.lay.frameSize)
			raw := unsafe.Pointer(uintptr(base) + off)
			r.entries[i] = entry{hdr: tpacket.New(raw)}
			i++
		}
	}
	r.cursor = 0
}

// fabricateRing negotiates kernel ring creation for the given kind,
// retrying at successively smaller block orders on ENOMEM per §4.2
// step 1. On success it returns the achieved layout; the caller is
// responsible for mmap'ing and then calling buildEntries once both
// rings (if any) of the instance are sized.
func fabricateRing(fd, snaplen, hdrlen, budget int, kind ringKind) (layout, error) {
	var lastErr error
	for order := 3; order >= 0; order-- {
		lay, err := computeLayout(snaplen, hdrlen, budget, order)
		if err != nil {
			lastErr = err
			continue
		}

		req := unix.TpacketReq{
			Block_size: uint32(lay.blockSize),
			Block_nr:   uint32(lay.blockCount),
			Frame_size: uint32(lay.frameSize),
			Frame_nr:   uint32(lay.frameCount),
		}

		opt := unix.PACKET_RX_RING
		if kind == ringTX {
			opt = unix.PACKET_TX_RING
		}

		err = unix.SetsockoptTpacketReq(fd, unix.SOL_PACKET, opt, &req)
		if err == nil {
			return lay, nil
		}
		if err != unix.ENOMEM {
			return layout{}, newErr(KindOS, "setsockopt ring request", err)
		}
		lastErr = newErr(KindOutOfMemory, "kernel rejected ring request", err)
	}
	return layout{}, lastErr
}

// teardownRing issues a zero-sized ring request to direct the kernel
// to release whatever it allocated for this ring kind. Errors here
// are not actionable during shutdown and are swallowed by the caller.
func teardownRing(fd int, kind ringKind) error {
	req := unix.TpacketReq{}
	opt := unix.PACKET_RX_RING
	if kind == ringTX {
		opt = unix.PACKET_TX_RING
	}
	return unix.SetsockoptTpacketReq(fd, unix.SOL_PACKET, opt, &req)
}
