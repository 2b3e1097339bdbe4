// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import "testing"

func TestClampVerdict(t *testing.T) {
	assert := newAssert(t, true)

	assert(clampVerdict(VerdictBlock) == VerdictBlock)
	assert(clampVerdict(maxVerdict) == VerdictPass)
	assert(clampVerdict(Verdict(-1)) == VerdictPass)
	assert(clampVerdict(Verdict(999)) == VerdictPass)
}

func TestTranslateVerdict(t *testing.T) {
	assert := newAssert(t, true)

	pass := []Verdict{VerdictPass, VerdictReplace, VerdictWhitelist, VerdictIgnore}
	block := []Verdict{VerdictBlock, VerdictBlacklist, VerdictRetry}

	for _, v := range pass {
		assert(translateVerdict(v))
	}
	for _, v := range block {
		assert(!translateVerdict(v))
	}
}
