// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"fmt"
	"net"

	"github.com/yerden/go-afpacket/internal/ifreq"
	"golang.org/x/sys/unix"
)

// IfAddr describes one Ethernet interface candidate for a device spec,
// the pure-Go/AF_PACKET equivalent of a capture driver's port listing.
// It is gathered with ioctls on a short-lived AF_PACKET datagram
// socket; no ring is set up.
type IfAddr struct {
	Name    string
	Ifindex int
	HWAddr  net.HardwareAddr
	LinkUp  bool
}

func (a IfAddr) String() string {
	state := "down"
	if a.LinkUp {
		state = "up"
	}
	return fmt.Sprintf("n=%d,name=%s,hwaddr=%v,link=%s", a.Ifindex, a.Name, a.HWAddr, state)
}

// ListIfAddrs enumerates every Ethernet interface on the host via
// net.Interfaces, annotating each with its link state. Interfaces
// whose hardware type isn't Ethernet (loopback, tunnels, etc.) are
// skipped, since newInstance would reject them anyway.
func ListIfAddrs() ([]IfAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, newErr(KindOS, "enumerate interfaces", err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, newErr(KindOS, "socket", err)
	}
	defer unix.Close(fd)

	var out []IfAddr
	for _, iface := range ifaces {
		hwtype, err := ifreq.HardwareType(fd, iface.Name)
		if err != nil || hwtype != unix.ARPHRD_ETHER {
			continue
		}
		up, _ := ifreq.LinkUp(fd, iface.Name)
		out = append(out, IfAddr{
			Name:    iface.Name,
			Ifindex: iface.Index,
			HWAddr:  iface.HardwareAddr,
			LinkUp:  up,
		})
	}
	return out, nil
}

// FindIfAddrByName returns the IfAddr matching name, or ErrNoDevice if
// none does.
func FindIfAddrByName(name string) (IfAddr, error) {
	addrs, err := ListIfAddrs()
	if err != nil {
		return IfAddr{}, err
	}
	for _, a := range addrs {
		if a.Name == name {
			return a, nil
		}
	}
	return IfAddr{}, ErrNoDevice
}
