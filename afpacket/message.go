// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import "time"

// Verdict is the host's disposition for a received frame.
type Verdict int

// Verdict values the host may pass to FinalizeMessage. Translation to
// the underlying {pass, block} action is fixed, per §4.5 Finalize.
const (
	VerdictPass Verdict = iota
	VerdictBlock
	VerdictReplace
	VerdictWhitelist
	VerdictBlacklist
	VerdictIgnore
	VerdictRetry

	maxVerdict
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictBlock:
		return "block"
	case VerdictReplace:
		return "replace"
	case VerdictWhitelist:
		return "whitelist"
	case VerdictBlacklist:
		return "blacklist"
	case VerdictIgnore:
		return "ignore"
	case VerdictRetry:
		return "retry"
	default:
		return "pass" // unknown verdicts clamp to pass, see clampVerdict
	}
}

// clampVerdict maps any out-of-range verdict value down to
// VerdictPass, per §4.5 Finalize ("Clamp unknown verdicts to PASS").
func clampVerdict(v Verdict) Verdict {
	if v < 0 || v >= maxVerdict {
		return VerdictPass
	}
	return v
}

// translateVerdict maps a (clamped) verdict to the binary
// pass/block action that drives forwarding, via the fixed table in
// §4.5: PASS/REPLACE/WHITELIST/IGNORE -> pass, BLOCK/BLACKLIST/RETRY
// -> block.
func translateVerdict(v Verdict) bool /* true = pass */ {
	switch v {
	case VerdictPass, VerdictReplace, VerdictWhitelist, VerdictIgnore:
		return true
	default:
		return false
	}
}

// PacketHeader is the normalized, copyable metadata for one received
// frame.
type PacketHeader struct {
	Timestamp      time.Time
	CapLen         int
	WireLen        int
	IngressIfindex int
	// EgressIfindex is the peer's ifindex in in-line mode, or -1 if
	// this instance is passive ("unknown" egress per §4.5 Publish).
	EgressIfindex int
}

// Message is the value the host receives from ReceiveMessage and must
// pass back, unmodified, to FinalizeMessage. It is a borrowed view: Data
// points directly into the mapped ring and is only valid until the
// matching FinalizeMessage call.
type Message struct {
	Header PacketHeader
	Data   []byte

	ingress int // index into Context.instances
	entIdx  int // index within ingress instance's RX ring entries
	gen     uint64
}
