// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

package afpacket

// Stats aggregates counters across every instance of a Context, per
// §4.7.
type Stats struct {
	HWPacketsReceived uint64
	HWPacketsDropped  uint64
	PacketsFiltered   uint64
	PacketsInjected   uint64
	Verdicts          [int(maxVerdict)]uint64
}

// collectHWStats reads and resets PACKET_STATISTICS on every
// instance, aggregating into the running HW counters.
//
// Per kernel quirk, tp_packets includes tp_drops; this is corrected
// by subtracting drops before adding to the received counter.
func (ctx *Context) collectHWStats() error {
	for _, inst := range ctx.instances {
		st, err := inst.kernelStats()
		if err != nil {
			return err
		}
		drops := uint64(st.Drops)
		recv := uint64(st.Packets)
		if recv >= drops {
			recv -= drops
		} else {
			recv = 0
		}
		ctx.stats.HWPacketsReceived += recv
		ctx.stats.HWPacketsDropped += drops
	}
	return nil
}

// GetStats folds in the latest hardware counters and returns a copy
// of the aggregated statistics.
func (ctx *Context) GetStats() (Stats, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if err := ctx.collectHWStats(); err != nil {
		return Stats{}, err
	}
	return ctx.stats, nil
}

// ResetStats zeroes every counter and drains (discards) each
// instance's pending kernel counters so that a subsequent GetStats
// reflects only events after the reset.
func (ctx *Context) ResetStats() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for _, inst := range ctx.instances {
		if _, err := inst.kernelStats(); err != nil {
			return err
		}
	}
	ctx.stats = Stats{}
	return nil
}
