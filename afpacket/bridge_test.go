// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import "testing"

func TestParseDeviceSpecPassive(t *testing.T) {
	assert := newAssert(t, true)

	names, pairs, err := parseDeviceSpec("eth0:eth1:eth2", true)
	assert(err == nil)
	assert(len(names) == 3)
	assert(pairs == nil)

	_, _, err = parseDeviceSpec("eth0::eth1", true)
	assert(err != nil)
}

func TestParseDeviceSpecInlinePairs(t *testing.T) {
	assert := newAssert(t, true)

	names, pairs, err := parseDeviceSpec("eth0:eth1", false)
	assert(err == nil)
	assert(len(names) == 2)
	assert(len(pairs) == 1)
	assert(pairs[0] == [2]int{0, 1})

	names, pairs, err = parseDeviceSpec("eth0:eth1::eth2:eth3", false)
	assert(err == nil)
	assert(len(names) == 4)
	assert(len(pairs) == 2)
	assert(pairs[0] == [2]int{0, 1})
	assert(pairs[1] == [2]int{2, 3})
}

func TestParseDeviceSpecRejectsOddGroup(t *testing.T) {
	assert := newAssert(t, false)

	_, _, err := parseDeviceSpec("eth0:eth1:eth2", false)
	assert(err != nil)
}

func TestParseDeviceSpecRejectsEmptyOrBounds(t *testing.T) {
	assert := newAssert(t, false)

	_, _, err := parseDeviceSpec("", true)
	assert(err != nil)

	_, _, err = parseDeviceSpec(":eth0", true)
	assert(err != nil)

	_, _, err = parseDeviceSpec("eth0:", true)
	assert(err != nil)

	_, _, err = parseDeviceSpec("eth0::eth1:", false)
	assert(err != nil)
}

func TestApplyBridgesSetsReciprocalPeers(t *testing.T) {
	assert := newAssert(t, true)

	instances := []*instance{
		{name: "a", peerIdx: -1},
		{name: "b", peerIdx: -1},
	}
	applyBridges(instances, [][2]int{{0, 1}})

	assert(instances[0].peerIdx == 1)
	assert(instances[1].peerIdx == 0)
	assert(instances[0].hasTX)
	assert(instances[1].hasTX)
}
