// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import "testing"

func TestParseFanoutType(t *testing.T) {
	assert := newAssert(t, true)

	typ, err := parseFanoutType("hash")
	assert(err == nil)
	assert(typ == FanoutHash)

	_, err = parseFanoutType("bogus")
	assert(err != nil)
}

func TestParseFanoutFlag(t *testing.T) {
	assert := newAssert(t, true)

	flag, err := parseFanoutFlag("defrag")
	assert(err == nil)
	assert(flag == FanoutFlagDefrag)

	_, err = parseFanoutFlag("bogus")
	assert(err != nil)
}
