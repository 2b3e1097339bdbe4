// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	assert := newAssert(t, true)

	e1 := newErr(KindAgain, "ring full on eth0", nil)
	e2 := newErr(KindAgain, "ring full on eth1", nil)
	e3 := newErr(KindOS, "setsockopt failed", nil)

	assert(errors.Is(e1, e2))
	assert(!errors.Is(e1, e3))
	assert(IsAgain(e1))
	assert(!IsAgain(e3))
}

func TestErrorUnwrap(t *testing.T) {
	assert := newAssert(t, true)

	cause := errors.New("boom")
	e := newErr(KindOS, "bind", cause)
	assert(errors.Unwrap(e) == cause)
	assert(errors.Is(e, cause))
}
