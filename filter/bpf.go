// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package filter

import (
	"fmt"

	"golang.org/x/net/bpf"
)

// Program wraps a pure-Go BPF virtual machine (golang.org/x/net/bpf)
// executing already-assembled classic BPF instructions. It implements
// Filter by running the compiled program against each packet's bytes;
// producing a Program from a tcpdump-style textual expression stays an
// external concern (no pure-Go pcap-filter compiler exists in this
// module's dependency set).
type Program struct {
	vm *bpf.VM
}

// NewProgram assembles insns into a runnable Program. An invalid
// program is reported as a plain error wrapping the bpf package's
// error; afpacket's SetFilter takes the already-built Program and
// never sees this error.
func NewProgram(insns []bpf.Instruction) (*Program, error) {
	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("assemble bpf program: %w", err)
	}
	return &Program{vm: vm}, nil
}

// Execute runs the program against data and returns the number of
// bytes the classic BPF convention says to keep: zero means drop,
// matching the Filter interface's "if equals zero, the packet is
// filtered" contract.
func (p *Program) Execute(data []byte) int {
	n, err := p.vm.Run(data)
	if err != nil {
		return 0
	}
	return n
}

// EtherTypeProgram builds a minimal four-instruction classic BPF
// program that accepts only frames whose EtherType field equals want,
// capturing up to snaplen bytes. It is provided as a convenience for
// hosts with no textual BPF compiler on hand and as a small, known-
// good fixture for this package's own tests.
func EtherTypeProgram(want uint16, snaplen int) (*Program, error) {
	insns := []bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(want), SkipFalse: 1},
		bpf.RetConstant{Val: uint32(snaplen)},
		bpf.RetConstant{Val: 0},
	}
	return NewProgram(insns)
}
