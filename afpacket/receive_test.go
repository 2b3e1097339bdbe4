// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"testing"

	"github.com/yerden/go-afpacket/internal/tpacket"
)

// newTestInstance builds an instance backed by a plain heap buffer
// (no socket, no mmap) with a real ring layout over it, so nextFrame
// can be exercised against synthetic ready/consumed entries the same
// way vlan_test.go exercises reinsertVLANTag against a synthetic
// frame buffer.
func newTestInstance(t *testing.T) *instance {
	t.Helper()
	lay, err := computeLayout(64, 0, 1<<16, 0)
	if err != nil {
		t.Fatal(err)
	}
	r := ring{lay: lay, base: make([]byte, lay.totalSize())}
	r.buildEntries()
	if len(r.entries) < 3 {
		t.Fatalf("need at least 3 frames per ring for this test, got %d", len(r.entries))
	}
	return &instance{rx: r, peerIdx: -1}
}

// TestNextFrameAsymmetricRoundRobin exercises the scan-then-stick-at-
// winner rotation under skewed load: nextFrame keeps returning the
// same instance while it has consecutive ready frames, and only
// rotates to the next instance once the current one runs dry.
func TestNextFrameAsymmetricRoundRobin(t *testing.T) {
	assert := newAssert(t, true)

	inst0 := newTestInstance(t)
	inst1 := newTestInstance(t)
	ctx := &Context{instances: []*instance{inst0, inst1}}

	mark := func(inst *instance, idx int) {
		inst.rx.at(idx).hdr.SetStatus(tpacket.StatusUser)
	}
	consumeCurrent := func(inst *instance) {
		inst.rx.current().hdr.SetStatus(tpacket.StatusKernel)
		inst.rx.advance()
	}

	// Skewed load: instance 0 gets two frames ready before instance 1
	// gets any.
	mark(inst0, 0)
	mark(inst0, 1)

	instIdx, entIdx, ok := ctx.nextFrame()
	assert(ok)
	assert(instIdx == 0)
	assert(entIdx == 0)
	consumeCurrent(inst0)

	// instance 0 still has a second ready frame: the scan sticks on it
	// rather than rotating to instance 1.
	instIdx, entIdx, ok = ctx.nextFrame()
	assert(ok)
	assert(instIdx == 0)
	assert(entIdx == 1)
	consumeCurrent(inst0)

	// instance 0 is now dry; nothing is ready anywhere yet.
	_, _, ok = ctx.nextFrame()
	assert(!ok)

	// instance 1 becomes ready: the scan rotates away from the
	// now-idle instance 0.
	mark(inst1, 0)
	instIdx, entIdx, ok = ctx.nextFrame()
	assert(ok)
	assert(instIdx == 1)
	assert(entIdx == 0)
	consumeCurrent(inst1)

	_, _, ok = ctx.nextFrame()
	assert(!ok)
}
