// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"fmt"
	"strings"
)

// maxInterfaces bounds the total number of interfaces any single
// device spec may name, per §4.4/§6.
const maxInterfaces = 32

// parseDeviceSpec splits a device specification string into the
// interface names it names and, in non-passive mode, the bridge
// pairing between them.
//
// Passive mode: a flat, colon-separated list; "::" is forbidden.
// Non-passive (in-line) mode: colon-separated pairs, with "::"
// separating one pair from the next; a trailing unpaired interface is
// an error, and the interface count must therefore be even.
func parseDeviceSpec(spec string, passive bool) (names []string, pairs [][2]int, err error) {
	if spec == "" {
		return nil, nil, newErr(KindConfig, "empty device specification", nil)
	}
	if strings.HasPrefix(spec, ":") || strings.HasSuffix(spec, ":") {
		return nil, nil, newErr(KindConfig, "device spec must not start or end with ':'", nil)
	}

	if passive {
		if strings.Contains(spec, "::") {
			return nil, nil, newErr(KindConfig, "'::' is not allowed in passive mode", nil)
		}
		names = strings.Split(spec, ":")
		if err := validateNames(names); err != nil {
			return nil, nil, err
		}
		return names, nil, nil
	}

	groups := strings.Split(spec, "::")
	for _, g := range groups {
		members := strings.Split(g, ":")
		if len(members)%2 != 0 {
			return nil, nil, newErr(KindConfig, "non-passive mode requires an even number of interfaces per bridge group", nil)
		}
		for i := 0; i < len(members); i += 2 {
			a, b := len(names), len(names)+1
			names = append(names, members[i], members[i+1])
			pairs = append(pairs, [2]int{a, b})
		}
	}
	if err := validateNames(names); err != nil {
		return nil, nil, err
	}
	return names, pairs, nil
}

func validateNames(names []string) error {
	if len(names) == 0 {
		return newErr(KindConfig, "device spec names no interfaces", nil)
	}
	if len(names) > maxInterfaces {
		return newErr(KindConfig, fmt.Sprintf("device spec names %d interfaces, max %d", len(names), maxInterfaces), nil)
	}
	for _, n := range names {
		if n == "" {
			return newErr(KindConfig, "empty interface name in device spec", nil)
		}
		if len(n) >= 16 { // IFNAMSIZ
			return newErr(KindConfig, fmt.Sprintf("interface name %q too long", n), nil)
		}
	}
	return nil
}

// applyBridges sets a.peerIdx = b and b.peerIdx = a for every pair,
// establishing the bridge symmetry invariant of §3. Instances not
// named in any pair remain passive (peerIdx == -1).
func applyBridges(instances []*instance, pairs [][2]int) {
	for _, p := range pairs {
		a, b := p[0], p[1]
		instances[a].peerIdx = b
		instances[b].peerIdx = a
		instances[a].hasTX = true
		instances[b].hasTX = true
	}
}
