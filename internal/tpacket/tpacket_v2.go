// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

// Package tpacket provides a typed accessor over a single TPACKET_V2
// frame slot living in memory mmap'd from an AF_PACKET socket. It is
// the "newtype whose lifetime is tied to the ring's mapping" called
// for when re-architecting the kernel/userspace shared frame away
// from raw pointer arithmetic.
package tpacket

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Status bits, re-exported under their TP_STATUS_* names for callers
// that would otherwise need to import golang.org/x/sys/unix just for
// these constants.
const (
	StatusKernel      = 0
	StatusUser        = unix.TP_STATUS_USER
	StatusCopy        = unix.TP_STATUS_COPY
	StatusLosing      = unix.TP_STATUS_LOSING
	StatusCSumNotRdy  = unix.TP_STATUS_CSUMNOTREADY
	StatusVlanValid   = unix.TP_STATUS_VLAN_VALID
	StatusVlanTPIDVal = unix.TP_STATUS_VLAN_TPID_VALID
	StatusAvailable   = unix.TP_STATUS_AVAILABLE
	StatusSendRequest = unix.TP_STATUS_SEND_REQUEST
	StatusSending     = unix.TP_STATUS_SENDING
	StatusWrongFormat = unix.TP_STATUS_WRONG_FORMAT
)

// Align rounds n up to the kernel's TPACKET alignment boundary
// (TPACKET_ALIGNMENT, 16 on every architecture Linux supports packet
// sockets on).
func Align(n int) int {
	const alignment = unix.TPACKET_ALIGNMENT
	return (n + alignment - 1) &^ (alignment - 1)
}

// SizeofSockaddrLL is sizeof(struct sockaddr_ll), the address record
// the kernel writes immediately after the tpacket2_hdr in every frame.
const SizeofSockaddrLL = unsafe.Sizeof(unix.RawSockaddrLinklayer{})

// EthHLen is the length of an untagged Ethernet header (2x MAC + 2
// byte Ethertype); also known as ETH_HLEN.
const EthHLen = 14

// EthAlen is the length of a single Ethernet MAC address.
const EthAlen = 6

// VlanTagLen is the width of a reinserted 802.1Q tag (2 bytes TPID +
// 2 bytes TCI). This is also the PACKET_RESERVE headroom size.
const VlanTagLen = 4

// Header is a handle over one frame slot of a TPACKET_V2 ring,
// addressed directly into the mmap'd region. It does not own the
// backing memory; it must not outlive the mapping.
type Header struct {
	raw unsafe.Pointer
	hdr *unix.Tpacket2Hdr
}

// New wraps the frame slot starting at raw.
func New(raw unsafe.Pointer) Header {
	return Header{raw: raw, hdr: (*unix.Tpacket2Hdr)(raw)}
}

// Status performs an acquire-load of tp_status: a read that must
// happen-before any inspection of the frame body the kernel produced.
func (h Header) Status() uint32 {
	return atomic.LoadUint32(&h.hdr.Status)
}

// SetStatus performs a release-store of tp_status: all prior writes
// to the frame body (VLAN reinsertion, payload for TX) become visible
// to the kernel only after this store retires.
func (h Header) SetStatus(v uint32) {
	atomic.StoreUint32(&h.hdr.Status, v)
}

// Len returns tp_len, the original (possibly truncated-on-wire) frame
// length.
func (h Header) Len() uint32 { return h.hdr.Len }

// SetLen sets tp_len (used on TX to describe the outgoing frame).
func (h Header) SetLen(v uint32) { h.hdr.Len = v }

// Snaplen returns tp_snaplen, the number of payload bytes actually
// captured into the ring.
func (h Header) Snaplen() uint32 { return h.hdr.Snaplen }

// SetSnaplen sets tp_snaplen.
func (h Header) SetSnaplen(v uint32) { h.hdr.Snaplen = v }

// MacOffset returns tp_mac, the byte offset from the start of this
// header to the start of the captured Ethernet frame.
func (h Header) MacOffset() uint16 { return h.hdr.Mac }

// SetMacOffset sets tp_mac.
func (h Header) SetMacOffset(v uint16) { h.hdr.Mac = v }

// NetOffset returns tp_net, the byte offset to the start of the
// network-layer payload (i.e. past the Ethernet header as seen by the
// kernel at capture time, before any VLAN reinsertion).
func (h Header) NetOffset() uint16 { return h.hdr.Net }

// Sec returns tp_sec, the capture timestamp's second component.
func (h Header) Sec() uint32 { return h.hdr.Sec }

// Nsec returns tp_nsec, the capture timestamp's nanosecond component.
func (h Header) Nsec() uint32 { return h.hdr.Nsec }

// VlanTCI returns tp_vlan_tci as delivered by the NIC/driver when it
// stripped the VLAN tag from the wire frame.
func (h Header) VlanTCI() uint16 { return h.hdr.Vlan_tci }

// VlanTPID returns tp_vlan_tpid (zero on kernels too old to report
// it; StatusVlanTPIDVal distinguishes "zero" from "not reported").
func (h Header) VlanTPID() uint16 { return h.hdr.Vlan_tpid }

// Data returns the captured payload bytes for this frame, i.e. the
// bytes at raw+tp_mac of length tp_snaplen. frameSize bounds the
// slice so a corrupt offset/length pair cannot read outside the slot.
func (h Header) Data(frameSize int) []byte {
	mac, snaplen := int(h.hdr.Mac), int(h.hdr.Snaplen)
	if mac < 0 || snaplen < 0 || mac+snaplen > frameSize {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(h.raw)+uintptr(mac))), snaplen)
}

// Raw returns the base address of the frame slot.
func (h Header) Raw() unsafe.Pointer { return h.raw }

// HdrLen queries the kernel's TPACKET header length for the given
// ring protocol version via getsockopt(PACKET_HDRLEN). This getsockopt
// has unusual "in/out" semantics: the caller pre-fills the buffer with
// the desired version and the kernel overwrites it with the header
// length, so it cannot be expressed with the unix package's ordinary
// GetsockoptInt helper.
func HdrLen(fd int, version uint32) (int, error) {
	val := version
	size := uint32(unsafe.Sizeof(val))
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT,
		uintptr(fd), uintptr(unix.SOL_PACKET), uintptr(unix.PACKET_HDRLEN),
		uintptr(unsafe.Pointer(&val)), uintptr(unsafe.Pointer(&size)), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(val), nil
}
