// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FanoutType selects the kernel's PACKET_FANOUT_* distribution
// algorithm across a fanout group.
type FanoutType int

// Fanout type values, named after the fanout_type config key's
// accepted strings (§6).
const (
	FanoutHash      FanoutType = unix.PACKET_FANOUT_HASH
	FanoutLB        FanoutType = unix.PACKET_FANOUT_LB
	FanoutCPU       FanoutType = unix.PACKET_FANOUT_CPU
	FanoutRollover  FanoutType = unix.PACKET_FANOUT_ROLLOVER
	FanoutRandom    FanoutType = unix.PACKET_FANOUT_RND
	FanoutQueueMap  FanoutType = unix.PACKET_FANOUT_QM
)

// FanoutFlag is OR'ed onto a FanoutType to tune its behavior.
type FanoutFlag int

// Fanout flag values, named after the fanout_flag config key's
// accepted strings (§6).
const (
	FanoutFlagRollover FanoutFlag = unix.PACKET_FANOUT_FLAG_ROLLOVER
	FanoutFlagDefrag   FanoutFlag = unix.PACKET_FANOUT_FLAG_DEFRAG
)

// fanoutConfig is the per-context fanout setup applied to every
// instance at Start, per DESIGN NOTES §9 ("Fanout configuration is
// process-wide only conceptually; keep it per-context").
type fanoutConfig struct {
	enabled bool
	typ     FanoutType
	flags   FanoutFlag
}

// parseFanoutType maps the fanout_type config key's textual values to
// a FanoutType.
func parseFanoutType(s string) (FanoutType, error) {
	switch s {
	case "hash":
		return FanoutHash, nil
	case "lb":
		return FanoutLB, nil
	case "cpu":
		return FanoutCPU, nil
	case "rollover":
		return FanoutRollover, nil
	case "rnd":
		return FanoutRandom, nil
	case "qm":
		return FanoutQueueMap, nil
	default:
		return 0, newErr(KindConfig, fmt.Sprintf("unrecognized fanout_type %q", s), nil)
	}
}

// parseFanoutFlag maps the fanout_flag config key's textual values to
// a FanoutFlag.
func parseFanoutFlag(s string) (FanoutFlag, error) {
	switch s {
	case "rollover":
		return FanoutFlagRollover, nil
	case "defrag":
		return FanoutFlagDefrag, nil
	default:
		return 0, newErr(KindConfig, fmt.Sprintf("unrecognized fanout_flag %q", s), nil)
	}
}
