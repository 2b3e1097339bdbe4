// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func newAssert(t *testing.T, fail bool) func(bool) {
	return func(expected bool) {
		if !expected {
			t.Helper()
			t.Error("Something's not right")
			if fail {
				t.FailNow()
			}
		}
	}
}

func TestComputeLayoutBasic(t *testing.T) {
	assert := newAssert(t, true)

	lay, err := computeLayout(1500, 52, 1<<20, 0)
	assert(err == nil)
	assert(lay.frameSize > 0)
	assert(lay.frameSize%16 == 0)
	assert(lay.blockSize >= lay.frameSize)
	assert(lay.framesPerBlk*lay.frameSize <= lay.blockSize)
	assert(lay.frameCount == lay.blockCount*lay.framesPerBlk)
	assert(lay.totalSize() == lay.blockSize*lay.blockCount)
}

func TestComputeLayoutRejectsBadInput(t *testing.T) {
	assert := newAssert(t, false)

	_, err := computeLayout(0, 52, 1<<20, 0)
	assert(err != nil)

	_, err = computeLayout(1500, 52, 0, 0)
	assert(err != nil)

	// budget too small to hold even one frame.
	_, err = computeLayout(1500, 52, 16, 0)
	assert(err != nil)
}

func TestComputeLayoutGrowsBlockForLargeSnaplen(t *testing.T) {
	assert := newAssert(t, true)

	small := 4096
	lay, err := computeLayout(65536, 52, 16<<20, 0)
	assert(err == nil)
	if lay.blockSize <= small || lay.blockSize < lay.frameSize {
		t.Errorf("unexpected layout: %s", spew.Sdump(lay))
	}
}
