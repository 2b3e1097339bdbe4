// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

// Command afpacket-bridge runs an in-line AF_PACKET bridge: packets
// arriving on one interface of each configured pair are forwarded to
// its peer, optionally after an installed BPF filter, as an IDS/IPS
// data plane.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yerden/go-afpacket/afpacket"
	"github.com/yerden/go-afpacket/filter"
)

var (
	deviceSpec = flag.String("i", "", "device spec, e.g. eth0:eth1 or eth0:eth1::eth2:eth3")
	snaplen    = flag.Int("s", 65536, "capture length per packet")
	timeout    = flag.Duration("t", 100*time.Millisecond, "poll timeout")
	bufferMB   = flag.Int("buffer-size-mb", 128, "total ring memory budget, in MB")
	etherType  = flag.Int("filter-ethertype", 0, "if nonzero, only frames with this EtherType reach the verdict loop; others are forwarded uninspected")
	tcpPort    = flag.Int("filter-tcp-port", 0, "if nonzero, only IPv4/TCP frames with this port reach the verdict loop; others are forwarded uninspected (fallback filter, no BPF compiler needed)")
	udpPort    = flag.Int("filter-udp-port", 0, "if nonzero, only IPv4/UDP frames with this port reach the verdict loop; others are forwarded uninspected (fallback filter, no BPF compiler needed)")
	debug      = flag.Bool("debug", false, "enable diagnostic logging")
)

func main() {
	flag.Parse()
	if *deviceSpec == "" {
		log.Fatal("-i is required")
	}

	opts := []afpacket.Option{afpacket.WithBufferSizeMB(*bufferMB)}
	if *debug {
		opts = append(opts, afpacket.WithDebug(log.Printf))
	}

	ctx, err := afpacket.Initialize(*deviceSpec, afpacket.ModeInline, *snaplen, *timeout, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Shutdown()

	switch {
	case *etherType != 0:
		prog, err := filterBPF(*etherType, *snaplen)
		if err != nil {
			log.Fatal(err)
		}
		if err := ctx.SetFilter(prog); err != nil {
			log.Fatal(err)
		}
	case *tcpPort != 0:
		if err := ctx.SetFilter(filter.TCPPortFilter(uint16(*tcpPort))); err != nil {
			log.Fatal(err)
		}
	case *udpPort != 0:
		if err := ctx.SetFilter(filter.UDPPortFilter(uint16(*udpPort))); err != nil {
			log.Fatal(err)
		}
	}

	if err := ctx.Start(); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("signal received, breaking loop")
		ctx.BreakLoop()
	}()

	var forwarded, blocked uint64
	for {
		msg, err := ctx.ReceiveMessage()
		if err != nil {
			if afpacket.IsInterrupted(err) {
				break
			}
			if afpacket.IsTimeout(err) {
				continue
			}
			log.Println("receive error:", err)
			continue
		}

		verdict := afpacket.VerdictPass
		forwarded++

		if err := ctx.FinalizeMessage(msg, verdict); err != nil {
			log.Println("finalize error:", err)
		}
		if verdict != afpacket.VerdictPass {
			blocked++
		}
	}

	stats, err := ctx.GetStats()
	if err != nil {
		log.Println("stats error:", err)
	}
	log.Printf("forwarded=%d blocked=%d hw_received=%d hw_dropped=%d filtered=%d",
		forwarded, blocked, stats.HWPacketsReceived, stats.HWPacketsDropped, stats.PacketsFiltered)
}

func filterBPF(etherType, snaplen int) (*filter.Program, error) {
	return filter.EtherTypeProgram(uint16(etherType), snaplen)
}
