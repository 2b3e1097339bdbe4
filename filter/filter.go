// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

// Package filter implements packet filtering as a two-stage split:
// compiling a textual or pre-assembled program into executable form,
// and executing that program against captured bytes to decide pass or
// drop. Compiling textual tcpdump-style expressions is out of scope;
// this package accepts already-assembled instructions and executes
// them, and also ships a couple of hand-rolled L3/L4 filters in the
// same Filter shape for callers with no BPF compiler available.
package filter

// Filter is the packet filtering seam the receive engine dispatches
// through. Execute returns zero if the packet is filtered (dropped),
// non-zero if it passes.
type Filter interface {
	Execute(data []byte) int
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(data []byte) int

// Execute calls f.
func (f FilterFunc) Execute(data []byte) int {
	return f(data)
}
