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
	"github.com/yerden/go-afpacket/internal/tpacket"
	"golang.org/x/sys/unix"
)

// instance represents one bound interface: a kernel packet socket,
// its RX ring (and optional TX ring), the shared mapping backing
// both, promiscuous membership and an optional forwarding peer.
//
// An instance is mutated only by its owning Context while STARTED;
// concurrent access across contexts is the host's responsibility.
type instance struct {
	name    string
	ifindex int
	fd      int
	hwaddr  net.HardwareAddr

	hdrlen int // negotiated TPACKET2 header length

	mapped []byte // whole mmap'd region: rx.size()+tx.size()
	rx     ring
	hasTX  bool
	tx     ring

	peerIdx int // index into Context.instances, -1 if passive

	closed bool
}

// newInstance allocates and brings up a packet socket for name: opens
// an AF_PACKET/SOCK_RAW socket for ETH_P_ALL, resolves and binds to
// its ifindex, enables promiscuous membership, and verifies the link
// type is Ethernet. This is §4.3 steps 1-4.
func newInstance(name string) (*instance, error) {
	if len(name) == 0 || len(name) >= ifreq.IFNAMSIZ {
		return nil, newErr(KindConfig, fmt.Sprintf("interface name %q too long", name), nil)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, newErr(KindOS, "socket", err)
	}

	inst := &instance{name: name, fd: fd, peerIdx: -1}

	ifindex, err := ifreq.Index(fd, name)
	if err != nil {
		inst.release()
		return nil, newErr(KindNoDevice, fmt.Sprintf("interface %q not found", name), err)
	}
	inst.ifindex = ifindex

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		inst.release()
		return nil, newErr(KindOS, "bind", err)
	}
	if serr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); err != nil || serr != 0 {
		inst.release()
		if err == nil {
			err = unix.Errno(serr)
		}
		return nil, newErr(KindOS, "pending socket error after bind", err)
	}

	if err := ifreq.EnablePromisc(fd, ifindex); err != nil {
		inst.release()
		return nil, newErr(KindOS, "enable promiscuous membership", err)
	}

	hwtype, err := ifreq.HardwareType(fd, name)
	if err != nil {
		inst.release()
		return nil, newErr(KindOS, "query hardware type", err)
	}
	if hwtype != unix.ARPHRD_ETHER {
		inst.release()
		return nil, newErr(KindConfig, fmt.Sprintf("interface %q is not Ethernet", name), nil)
	}

	if iface, err := net.InterfaceByName(name); err == nil {
		inst.hwaddr = iface.HardwareAddr
	}

	return inst, nil
}

// negotiateVersion queries TPACKET_HDRLEN for V2, then commits the
// socket to PACKET_VERSION=V2 and reserves the 4-byte VLAN headroom
// via PACKET_RESERVE. This is §4.3 step 5.
func (inst *instance) negotiateVersion() error {
	hdrlen, err := tpacket.HdrLen(inst.fd, unix.TPACKET_V2)
	if err != nil {
		return newErr(KindOS, "getsockopt PACKET_HDRLEN", err)
	}
	inst.hdrlen = hdrlen

	if err := unix.SetsockoptInt(inst.fd, unix.SOL_PACKET, unix.PACKET_VERSION, unix.TPACKET_V2); err != nil {
		return newErr(KindOS, "setsockopt PACKET_VERSION", err)
	}
	if err := unix.SetsockoptInt(inst.fd, unix.SOL_PACKET, unix.PACKET_RESERVE, tpacket.VlanTagLen); err != nil {
		return newErr(KindOS, "setsockopt PACKET_RESERVE", err)
	}
	return nil
}

// buildRings fabricates the RX ring (and the TX ring, if this
// instance has a peer), maps the socket once across both, and builds
// the entry arrays over the mapping. This is §4.3 steps 6-7 / §4.2.
func (inst *instance) buildRings(snaplen, budget int) error {
	ringCount := 1
	if inst.hasTX {
		ringCount = 2
	}
	perRingBudget := budget / ringCount

	rxLay, err := fabricateRing(inst.fd, snaplen, inst.hdrlen, perRingBudget, ringRX)
	if err != nil {
		return err
	}
	inst.rx = ring{kind: ringRX, lay: rxLay}

	var txLay layout
	if inst.hasTX {
		txLay, err = fabricateRing(inst.fd, snaplen, inst.hdrlen, perRingBudget, ringTX)
		if err != nil {
			return err
		}
		inst.tx = ring{kind: ringTX, lay: txLay}
	}

	total := inst.rx.lay.totalSize()
	if inst.hasTX {
		total += inst.tx.lay.totalSize()
	}

	mapped, err := unix.Mmap(inst.fd, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return newErr(KindOS, "mmap", err)
	}
	inst.mapped = mapped

	inst.rx.base = mapped[:inst.rx.lay.totalSize()]
	inst.rx.buildEntries()

	if inst.hasTX {
		inst.tx.base = mapped[inst.rx.lay.totalSize():total]
		inst.tx.buildEntries()
	}

	return nil
}

// applyFanout joins this instance's socket to the context-wide
// PACKET_FANOUT group, per §4.3 step 8.
func (inst *instance) applyFanout(fo fanoutConfig) error {
	if !fo.enabled {
		return nil
	}
	arg := (int(fo.typ) | int(fo.flags)) << 16
	arg |= inst.ifindex & 0xffff
	if err := unix.SetsockoptInt(inst.fd, unix.SOL_PACKET, unix.PACKET_FANOUT, arg); err != nil {
		return newErr(KindOS, "setsockopt PACKET_FANOUT", err)
	}
	return nil
}

// kernelStats reads and resets the kernel's PACKET_STATISTICS counters for
// this instance's socket.
func (inst *instance) kernelStats() (unix.TpacketStats, error) {
	st, err := unix.GetsockoptTpacketStats(inst.fd, unix.SOL_PACKET, unix.PACKET_STATISTICS)
	if err != nil {
		return unix.TpacketStats{}, newErr(KindOS, "getsockopt PACKET_STATISTICS", err)
	}
	return *st, nil
}

// release tears the instance down in the reverse order of
// construction: entry arrays, munmap, zero-sized ring teardown, close
// the socket. This is also used to unwind partially-initialized
// instances, so every step tolerates missing state.
func (inst *instance) release() {
	if inst.closed {
		return
	}
	inst.closed = true

	inst.rx.entries = nil
	inst.tx.entries = nil

	if inst.mapped != nil {
		unix.Munmap(inst.mapped)
		inst.mapped = nil
	}

	if inst.fd >= 0 {
		teardownRing(inst.fd, ringRX)
		if inst.hasTX {
			teardownRing(inst.fd, ringTX)
		}
		ifreq.DisablePromisc(inst.fd, inst.ifindex)
		unix.Close(inst.fd)
		inst.fd = -1
	}
}

// htons converts a uint16 from host to network byte order. Kept as a
// free function (rather than reaching for encoding/binary for two
// bytes) to match the idiom the wider Go AF_PACKET ecosystem uses.
func htons(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}
