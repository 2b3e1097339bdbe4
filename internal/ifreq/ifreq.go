// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

// Package ifreq wraps the small set of SIOCG*/SIOCS* ioctls the
// AF_PACKET ring engine needs on a raw socket: ifindex lookup,
// promiscuous membership and link-type verification.
package ifreq

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// IFNAMSIZ is the kernel's interface name buffer size, including the
// terminating NUL.
const IFNAMSIZ = unix.IFNAMSIZ

// Index resolves the ifindex of the named interface via SIOCGIFINDEX.
// It returns unix.ENODEV if the device does not exist.
func Index(fd int, name string) (int, error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, fmt.Errorf("ifreq: invalid name %q: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFINDEX, ifr); err != nil {
		return 0, err
	}
	return int(ifr.Uint32()), nil
}

// HardwareType queries the link-layer hardware type of the named
// interface's socket via SIOCGIFHWADDR and returns the ARPHRD_*
// constant (e.g. unix.ARPHRD_ETHER).
func HardwareType(fd int, name string) (int, error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, err
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFHWADDR, ifr); err != nil {
		return 0, err
	}
	// sa_family is the first field of the ifr_hwaddr sockaddr.
	return int(ifr.Uint16()), nil
}

// SetPromiscOn sets IFF_PROMISC on the named interface with a
// SIOCGIFFLAGS/SIOCSIFFLAGS read-modify-write. Unlike EnablePromisc,
// the flag is interface-wide and is not cleared when the socket
// closes. This helper is kept for interfaces that only expose the
// classic IFF_PROMISC flag toggle.
func SetPromiscOn(fd int, name string) error {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return err
	}
	flags := ifr.Uint16()
	ifr.SetUint16(flags | unix.IFF_PROMISC)
	return unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr)
}

// EnablePromisc enables promiscuous membership for ifindex on the
// packet socket fd using PACKET_ADD_MEMBERSHIP, which (unlike
// SetPromiscOn) is ref-counted per-socket and cleaned up automatically
// on close — the mechanism the receive engine actually relies on.
func EnablePromisc(fd, ifindex int) error {
	mreq := unix.PacketMreq{
		Ifindex: int32(ifindex),
		Type:    unix.PACKET_MR_PROMISC,
	}
	return setPacketMreq(fd, unix.PACKET_ADD_MEMBERSHIP, &mreq)
}

// DisablePromisc drops promiscuous membership previously added with
// EnablePromisc. Errors are generally ignorable during teardown.
func DisablePromisc(fd, ifindex int) error {
	mreq := unix.PacketMreq{
		Ifindex: int32(ifindex),
		Type:    unix.PACKET_MR_PROMISC,
	}
	return setPacketMreq(fd, unix.PACKET_DROP_MEMBERSHIP, &mreq)
}

func setPacketMreq(fd, opt int, mreq *unix.PacketMreq) error {
	return unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, opt, mreq)
}

// LinkUp reports whether the kernel's SIOCGIFFLAGS view of the
// interface carries IFF_UP. Used only for diagnostics; the ring
// engine itself does not gate on link state.
func LinkUp(fd int, name string) (bool, error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return false, err
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return false, err
	}
	return ifr.Uint16()&unix.IFF_UP != 0, nil
}

// SockaddrLinklayerOf builds the sockaddr_ll used both for binding the
// RX side and as the template used for plain sendto() injection.
func SockaddrLinklayerOf(ifindex int, protocol uint16, haddr []byte) *unix.SockaddrLinklayer {
	sa := &unix.SockaddrLinklayer{
		Protocol: protocol,
		Ifindex:  ifindex,
	}
	n := copy(sa.Addr[:], haddr)
	sa.Halen = uint8(n)
	return sa
}

