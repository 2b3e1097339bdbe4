// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

import (
	"github.com/google/gopacket"
)

// ZeroCopyReadPacketData implements gopacket.ZeroCopyPacketDataSource
// over ReceiveMessage/FinalizeMessage, letting a Context feed
// gopacket.NewPacketSource or a raw gopacket.DecodingLayerParser
// directly. The returned byte slice aliases ring memory and is valid
// only until the next
// ZeroCopyReadPacketData call, which finalizes the previous message
// with VerdictPass before blocking for the next one.
type ZeroCopySource struct {
	ctx     *Context
	pending *Message
}

// NewZeroCopySource wraps ctx for gopacket consumption. The caller is
// still responsible for calling ctx.Start before reading.
func NewZeroCopySource(ctx *Context) *ZeroCopySource {
	return &ZeroCopySource{ctx: ctx}
}

// ZeroCopyReadPacketData satisfies gopacket.ZeroCopyPacketDataSource.
func (s *ZeroCopySource) ZeroCopyReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	if s.pending != nil {
		if ferr := s.ctx.FinalizeMessage(s.pending, VerdictPass); ferr != nil {
			return nil, gopacket.CaptureInfo{}, ferr
		}
		s.pending = nil
	}

	msg, err := s.ctx.ReceiveMessage()
	if err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	s.pending = msg

	ci = gopacket.CaptureInfo{
		Timestamp:      msg.Header.Timestamp,
		CaptureLength:  msg.Header.CapLen,
		Length:         msg.Header.WireLen,
		InterfaceIndex: msg.Header.IngressIfindex,
	}
	return msg.Data, ci, nil
}

// Close finalizes any pending message with VerdictPass and stops the
// underlying Context.
func (s *ZeroCopySource) Close() error {
	if s.pending != nil {
		s.ctx.FinalizeMessage(s.pending, VerdictPass)
		s.pending = nil
	}
	return s.ctx.Stop()
}
