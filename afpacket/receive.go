// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/yerden/go-afpacket/filter"
	"github.com/yerden/go-afpacket/internal/tpacket"
	"golang.org/x/sys/unix"
)

// nextFrame scans instances in round-robin order starting at
// scanCursor, looking for an RX ring entry the kernel has handed to
// userspace (TP_STATUS_USER set). Per DESIGN NOTES §9, the cursor is
// left pointing at whichever instance it found a frame on rather than
// always moving on to the next one: a busy interface is serviced
// repeatedly before the scan rotates away from it. This asymmetry was
// flagged as a possible bug in the original design notes but is
// preserved deliberately.
func (ctx *Context) nextFrame() (instIdx, entIdx int, ok bool) {
	n := len(ctx.instances)
	for k := 0; k < n; k++ {
		idx := (ctx.scanCursor + k) % n
		r := &ctx.instances[idx].rx
		if r.current().hdr.Status()&tpacket.StatusUser != 0 {
			ctx.scanCursor = idx
			return idx, r.cursor, true
		}
	}
	return 0, 0, false
}

// waitReady blocks in poll() across every instance's socket until at
// least one is readable or the configured poll timeout elapses.
func (ctx *Context) waitReady() error {
	pfds := make([]unix.PollFd, len(ctx.instances))
	for i, inst := range ctx.instances {
		pfds[i] = unix.PollFd{Fd: int32(inst.fd), Events: unix.POLLIN}
	}

	timeoutMs := int(ctx.cfg.pollTimeout / time.Millisecond)
	n, err := unix.Poll(pfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return newErr(KindInterrupted, "poll interrupted", err)
		}
		return newErr(KindOS, "poll", err)
	}
	if n == 0 {
		return ErrTimeout
	}
	for i, pfd := range pfds {
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return newErr(KindOS, "socket error on "+ctx.instances[i].name, nil)
		}
	}
	return nil
}

// ReceiveMessage blocks until a frame that survives the installed
// filter (if any) is available, or until BreakLoop is called or the
// poll timeout elapses. Frames the filter drops are forwarded straight
// to the bridge peer, if any, without being surfaced to the caller;
// only one Message may be outstanding at a time, matching the
// reusable "current message" slot of §3/§4.5 — the returned Message
// must be passed to FinalizeMessage before the next ReceiveMessage
// call.
func (ctx *Context) ReceiveMessage() (*Message, error) {
	if ctx.CheckStatus() != StateStarted {
		return nil, newErr(KindConfig, "ReceiveMessage requires state STARTED", nil)
	}
	if ctx.curValid {
		return nil, newErr(KindConfig, "previous message not finalized", nil)
	}

	for {
		if atomic.LoadInt32(&ctx.breakLoop) != 0 {
			return nil, newErr(KindInterrupted, "break loop requested", nil)
		}

		instIdx, entIdx, ok := ctx.nextFrame()
		if !ok {
			if err := ctx.waitReady(); err != nil {
				if IsInterrupted(err) && atomic.LoadInt32(&ctx.breakLoop) == 0 {
					continue
				}
				return nil, err
			}
			continue
		}

		inst := ctx.instances[instIdx]
		ent := inst.rx.at(entIdx)
		frameSize := inst.rx.lay.frameSize

		mac := int(ent.hdr.MacOffset())
		snaplen := int(ent.hdr.Snaplen())
		if mac < 0 || snaplen < 0 || mac+snaplen > frameSize {
			ent.hdr.SetStatus(tpacket.StatusKernel)
			inst.rx.advance()
			return nil, newErr(KindCorruptFrame, "frame offsets exceed frame size", nil)
		}

		applyVLANReinsertion(ent.hdr, frameSize)
		mac = int(ent.hdr.MacOffset())
		snaplen = int(ent.hdr.Snaplen())

		data := unsafe.Slice((*byte)(ent.hdr.Raw()), frameSize)[mac : mac+snaplen]

		if f, _ := ctx.filter.Load().(filter.Filter); f != nil && f.Execute(data) == 0 {
			ctx.stats.PacketsFiltered++
			if inst.peerIdx >= 0 {
				ctx.transmit(ctx.instances[inst.peerIdx], data)
			}
			ent.hdr.SetStatus(tpacket.StatusKernel)
			inst.rx.advance()
			continue
		}

		egressIfindex := -1
		if inst.peerIdx >= 0 {
			egressIfindex = ctx.instances[inst.peerIdx].ifindex
		}

		ctx.cur = Message{
			Header: PacketHeader{
				Timestamp:      time.Unix(int64(ent.hdr.Sec()), int64(ent.hdr.Nsec())),
				CapLen:         snaplen,
				WireLen:        int(ent.hdr.Len()),
				IngressIfindex: inst.ifindex,
				EgressIfindex:  egressIfindex,
			},
			Data:    data,
			ingress: instIdx,
			entIdx:  entIdx,
			gen:     ctx.msgGen,
		}
		ctx.curValid = true
		inst.rx.advance()
		return &ctx.cur, nil
	}
}

// FinalizeMessage applies verdict to msg, forwarding it to the ingress
// instance's bridge peer (if any and if the verdict translates to
// pass) and releasing the ring slot back to the kernel. Forwarding is
// best-effort: a failed transmit does not keep the slot from being
// released and is not reported. msg must be the value most recently
// returned by ReceiveMessage; passing any other value, or calling this
// twice for the same message, is rejected.
func (ctx *Context) FinalizeMessage(msg *Message, v Verdict) error {
	if !ctx.curValid || msg != &ctx.cur || msg.gen != ctx.cur.gen {
		return newErr(KindConfig, "no matching outstanding message", nil)
	}

	v = clampVerdict(v)
	ctx.stats.Verdicts[int(v)]++

	inst := ctx.instances[msg.ingress]
	if translateVerdict(v) && inst.peerIdx >= 0 {
		ctx.transmit(ctx.instances[inst.peerIdx], msg.Data)
	}

	ent := inst.rx.at(msg.entIdx)
	ent.hdr.SetStatus(tpacket.StatusKernel)

	ctx.curValid = false
	ctx.msgGen++
	return nil
}
