// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"errors"
	"fmt"
)

// Kind discriminates the error taxonomy of §7: which broad category a
// failure belongs to, independent of the human-readable message or
// wrapped errno.
type Kind int

const (
	// KindConfig covers malformed device specs, invalid option
	// values, unsupported interface types and overlong names.
	KindConfig Kind = iota
	// KindNoDevice covers unresolvable ifindex lookups or bridge
	// endpoints.
	KindNoDevice
	// KindOutOfMemory covers userspace or kernel ring allocation
	// failure; ring creation internally retries at smaller orders
	// before surfacing this.
	KindOutOfMemory
	// KindOS covers socket/ioctl/bind/setsockopt/mmap/poll/send
	// failures and the poll timeout (ErrTimeout); the wrapped error,
	// when present, is usually a syscall.Errno.
	KindOS
	// KindCorruptFrame covers a ring slot whose offsets fall outside
	// its frame size. ReceiveMessage releases the slot and returns
	// this error; the Context is not stopped and stays STARTED.
	KindCorruptFrame
	// KindAgain covers a full TX ring on transmit; surfaced to the
	// caller of Inject, elided internally during forwarding.
	KindAgain
	// KindInterrupted covers poll() returning EINTR; retried
	// internally unless break-loop is set.
	KindInterrupted
	// KindFilter covers BPF compilation/validation failure.
	KindFilter
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNoDevice:
		return "no-device"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindOS:
		return "os"
	case KindCorruptFrame:
		return "corrupt-frame"
	case KindAgain:
		return "again"
	case KindInterrupted:
		return "interrupted"
	case KindFilter:
		return "filter"
	default:
		return "unknown"
	}
}

// Error is the discriminated error type every exported operation
// returns. It always carries a human-readable message alongside the
// Kind so a host can both switch on category and log the specifics.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, often a syscall.Errno; may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("afpacket: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("afpacket: %s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Sentinel errors usable with errors.Is for the common terminal
// conditions; they compare by Kind, not by identity, via Error's Is.
var (
	// ErrAgain marks a TX ring full / would-block condition.
	ErrAgain = &Error{Kind: KindAgain, Msg: "resource temporarily unavailable"}
	// ErrTimeout marks a poll timeout with no ready frame.
	ErrTimeout = &Error{Kind: KindOS, Msg: "timeout"}
	// ErrInterrupted marks a signal-interrupted poll.
	ErrInterrupted = &Error{Kind: KindInterrupted, Msg: "interrupted"}
	// ErrNoDevice marks an unresolvable device name or ifindex.
	ErrNoDevice = &Error{Kind: KindNoDevice, Msg: "no such device"}
)

// Is implements error matching by Kind so callers can write
// errors.Is(err, afpacket.ErrAgain) regardless of the specific
// message or wrapped cause attached to a given instance.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsAgain reports whether err represents a KindAgain condition.
func IsAgain(err error) bool { return errors.Is(err, ErrAgain) }

// IsTimeout reports whether err represents a poll timeout. ErrTimeout
// shares KindOS with every other OS failure, so it is matched by
// identity rather than by Kind.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e == ErrTimeout
}

// IsInterrupted reports whether err represents a signal-interrupted
// poll (EINTR).
func IsInterrupted(err error) bool { return errors.Is(err, ErrInterrupted) }
