// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

// Package afpacket drives Linux AF_PACKET/PACKET_MMAP (TPACKET_V2)
// ring buffers to capture and, for bridged interface pairs, forward
// traffic in-line. A Context owns one or more named interfaces bound
// into rings shared between the kernel and this process; the host
// drives it through Initialize, Start, ReceiveMessage/FinalizeMessage
// and Stop.
package afpacket
