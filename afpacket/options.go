// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Mode selects whether a Context's interfaces operate passively
// (observe only) or in-line (bridged pairs with verdict-driven
// forwarding), per §4.4.
type Mode int

const (
	// ModePassive treats the device spec as a flat list of observed
	// interfaces; "::" is rejected.
	ModePassive Mode = iota
	// ModeInline treats the device spec as colon-separated bridge
	// pairs, optionally grouped with "::".
	ModeInline
)

const defaultBufferSizeMB = 128

// bufferSizeEnvVar is the environment variable fallback for
// buffer_size_mb, per §6.
const bufferSizeEnvVar = "AF_PACKET_BUFFER_SIZE"

// config accumulates Initialize's device spec, mode, snaplen, poll
// timeout and key-value options (§6) before Context construction.
type config struct {
	deviceSpec  string
	mode        Mode
	snaplen     int
	pollTimeout time.Duration

	bufferBudget int64 // bytes, across all rings of the whole context
	debug        bool
	debugLog     func(string, ...interface{})

	fanout fanoutConfig
}

func newConfig(deviceSpec string, mode Mode, snaplen int, timeout time.Duration) *config {
	return &config{
		deviceSpec:   deviceSpec,
		mode:         mode,
		snaplen:      snaplen,
		pollTimeout:  timeout,
		bufferBudget: defaultBufferSizeMB << 20,
		debugLog:     func(string, ...interface{}) {},
	}
}

// Option configures a Context at Initialize time, following the
// familiar functional-option pattern for constructor configuration.
type Option struct {
	f func(*config) error
}

func apply(cfg *config, opts []Option) error {
	for _, o := range opts {
		if err := o.f(cfg); err != nil {
			return err
		}
	}
	return nil
}

// WithBufferSizeMB sets buffer_size_mb: total packet buffer memory in
// megabytes, split evenly across every RX/TX ring the context ends up
// creating.
func WithBufferSizeMB(mb int) Option {
	return Option{func(c *config) error {
		if mb <= 0 {
			return newErr(KindConfig, "buffer_size_mb must be positive", nil)
		}
		c.bufferBudget = int64(mb) << 20
		return nil
	}}
}

// WithBufferSizeFromEnv reproduces the buffer_size_mb="max" fallback
// behavior: consult AF_PACKET_BUFFER_SIZE, falling back to the
// built-in default (128 MB) if unset or unparsable.
func WithBufferSizeFromEnv() Option {
	return Option{func(c *config) error {
		v, ok := os.LookupEnv(bufferSizeEnvVar)
		if !ok {
			return nil
		}
		mb, err := strconv.Atoi(v)
		if err != nil || mb <= 0 {
			return nil
		}
		c.bufferBudget = int64(mb) << 20
		return nil
	}}
}

// WithDebug enables diagnostic printing via log (the debug config
// key). Library code itself never imports a logging framework; it
// only calls the supplied hook.
func WithDebug(log func(string, ...interface{})) Option {
	return Option{func(c *config) error {
		c.debug = true
		if log != nil {
			c.debugLog = log
		}
		return nil
	}}
}

// WithFanoutType sets fanout_type from one of the textual values
// documented in §6 ("hash", "lb", "cpu", "rollover", "rnd", "qm").
func WithFanoutType(s string) Option {
	return Option{func(c *config) error {
		t, err := parseFanoutType(s)
		if err != nil {
			return err
		}
		c.fanout.enabled = true
		c.fanout.typ = t
		return nil
	}}
}

// WithFanoutFlag OR's fanout_flag ("rollover" or "defrag") into the
// fanout flags.
func WithFanoutFlag(s string) Option {
	return Option{func(c *config) error {
		f, err := parseFanoutFlag(s)
		if err != nil {
			return err
		}
		c.fanout.enabled = true
		c.fanout.flags |= f
		return nil
	}}
}

// VariableDesc describes one recognized configuration key, the
// Go-native equivalent of a DAQ module's static variable-descriptor
// table (see GetVariableDescs).
type VariableDesc struct {
	Name        string
	Description string
	HasArg      bool
}

// GetVariableDescs returns the config keys this module recognizes, so
// a host can render usage text without hardcoding key names.
func GetVariableDescs() []VariableDesc {
	return []VariableDesc{
		{Name: "buffer_size_mb", Description: fmt.Sprintf("total packet buffer memory in MB, or 'max' (env %s, default %d)", bufferSizeEnvVar, defaultBufferSizeMB), HasArg: true},
		{Name: "debug", Description: "enable diagnostic printing", HasArg: false},
		{Name: "fanout_type", Description: "one of hash, lb, cpu, rollover, rnd, qm", HasArg: true},
		{Name: "fanout_flag", Description: "one of rollover, defrag", HasArg: true},
	}
}
