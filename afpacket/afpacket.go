// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/yerden/go-afpacket/filter"
)

// State is a Context's position in the UNINITIALIZED -> INITIALIZED ->
// STARTED -> STOPPED lifecycle of §3.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Capabilities is an OR-able bitmask reporting which optional
// facilities this build of the engine supports, the Go-native
// equivalent of a DAQ module's DAQ_CAPA_* mask.
type Capabilities int

const (
	// CapBlock: FinalizeMessage's verdict can drop a frame.
	CapBlock Capabilities = 1 << iota
	// CapReplace: a host may hand back modified frame bytes (Data is
	// writable up to its original captured length).
	CapReplace
	// CapInject: Inject is supported.
	CapInject
	// CapBPF: SetFilter accepts a compiled BPF program.
	CapBPF
	// CapFanout: PACKET_FANOUT load distribution is available.
	CapFanout
)

// Context is one bridge/capture session: a set of interface instances
// bound together by a device spec, their rings, an optional packet
// filter and the aggregated statistics and single reusable message
// slot the host drives via ReceiveMessage/FinalizeMessage.
//
// A Context's instances slice is fixed at Initialize and never
// mutated afterward; state transitions are guarded by mu. The
// message-loan bookkeeping and ReceiveMessage's ring reads are not:
// a Context is driven from one goroutine at a time, except for
// BreakLoop, which is safe to call from any goroutine.
type Context struct {
	mu    sync.Mutex
	state State

	cfg       *config
	instances []*instance

	filter atomic.Value // holds filter.Filter

	stats Stats

	breakLoop int32

	scanCursor int

	cur      Message
	curValid bool
	msgGen   uint64
}

// Initialize parses deviceSpec, brings up a packet socket, RX ring and
// (for bridged pairs) TX ring for every named interface, and returns a
// Context in state INITIALIZED. This is §4.3/§4.4 end to end.
func Initialize(deviceSpec string, mode Mode, snaplen int, pollTimeout time.Duration, opts ...Option) (ctx *Context, err error) {
	cfg := newConfig(deviceSpec, mode, snaplen, pollTimeout)
	if err := apply(cfg, opts); err != nil {
		return nil, err
	}
	if cfg.snaplen <= 0 {
		return nil, newErr(KindConfig, "snaplen must be positive", nil)
	}

	names, pairs, err := parseDeviceSpec(cfg.deviceSpec, cfg.mode == ModePassive)
	if err != nil {
		return nil, err
	}

	instances := make([]*instance, 0, len(names))
	defer func() {
		if err != nil {
			for _, inst := range instances {
				inst.release()
			}
		}
	}()

	for _, name := range names {
		inst, ierr := newInstance(name)
		if ierr != nil {
			err = ierr
			return nil, err
		}
		instances = append(instances, inst)
	}

	applyBridges(instances, pairs)

	perInstance := cfg.bufferBudget / int64(len(instances))
	if perInstance <= 0 {
		err = newErr(KindConfig, "buffer_size_mb too small for the requested interface count", nil)
		return nil, err
	}

	for _, inst := range instances {
		if verr := inst.negotiateVersion(); verr != nil {
			err = verr
			return nil, err
		}
		if verr := inst.buildRings(cfg.snaplen, int(perInstance)); verr != nil {
			err = verr
			return nil, err
		}
		cfg.debugLog("afpacket: %s: ifindex %d, peer %d, rx ring %d frames of %d bytes, tx ring %d frames of %d bytes",
			inst.name, inst.ifindex, inst.peerIdx, inst.rx.lay.frameCount, inst.rx.lay.frameSize,
			inst.tx.lay.frameCount, inst.tx.lay.frameSize)
	}

	ctx = &Context{cfg: cfg, instances: instances, state: StateInitialized}
	return ctx, nil
}

// Start joins every instance to the configured fanout group (if any)
// and transitions the Context to STARTED, after which ReceiveMessage
// may be called.
func (ctx *Context) Start() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.state != StateInitialized {
		return newErr(KindConfig, "Start requires state INITIALIZED", nil)
	}
	for _, inst := range ctx.instances {
		if err := inst.applyFanout(ctx.cfg.fanout); err != nil {
			return err
		}
	}
	ctx.state = StateStarted
	return nil
}

// SetFilter installs f as the packet filter consulted by the receive
// engine, atomically replacing whatever filter (if any) was previously
// active. Because f must already be a fully constructed Filter (BPF
// compilation, the external "compile_filter" concern, happens before
// this call), a failed compilation never reaches here and the
// previous filter is never disturbed by one — the "compile, then
// swap" discipline resolving the leak-on-failure design question.
func (ctx *Context) SetFilter(f filter.Filter) error {
	if f == nil {
		return newErr(KindFilter, "filter must not be nil", nil)
	}
	ctx.filter.Store(f)
	return nil
}

// BreakLoop requests that a blocked or future ReceiveMessage call
// return promptly with a KindInterrupted error. Safe to call from any
// goroutine.
func (ctx *Context) BreakLoop() {
	atomic.StoreInt32(&ctx.breakLoop, 1)
}

// Stop releases every instance's socket, rings and mapping and
// transitions the Context to STOPPED. Stop is idempotent: a second
// call returns nil without touching the instances.
func (ctx *Context) Stop() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.state == StateStopped {
		return nil
	}
	for _, inst := range ctx.instances {
		inst.release()
	}
	ctx.state = StateStopped
	return nil
}

// Shutdown is an alias for Stop, named to match the host API table.
func (ctx *Context) Shutdown() error { return ctx.Stop() }

// CheckStatus returns the Context's current lifecycle state.
func (ctx *Context) CheckStatus() State {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.state
}

// GetSnaplen returns the configured capture length.
func (ctx *Context) GetSnaplen() int { return ctx.cfg.snaplen }

// GetDatalinkType reports the link layer every instance was verified
// to run at Initialize time (Ethernet; non-Ethernet interfaces are
// rejected in newInstance).
func (ctx *Context) GetDatalinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

// GetCapabilities reports the optional facilities this build supports.
func (ctx *Context) GetCapabilities() Capabilities {
	return CapBlock | CapReplace | CapInject | CapBPF | CapFanout
}

// GetDeviceIndex resolves the kernel ifindex of one of this Context's
// instances by name.
func (ctx *Context) GetDeviceIndex(name string) (int, error) {
	for _, inst := range ctx.instances {
		if inst.name == name {
			return inst.ifindex, nil
		}
	}
	return 0, ErrNoDevice
}
