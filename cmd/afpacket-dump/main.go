// Copyright 2019 Yerden Zhumabekov. All rights reserved.
//
// Use of this source code is governed by MIT license which
// can be found in the LICENSE file in the root of the source
// tree.

// Command afpacket-dump passively captures from one or more
// interfaces and writes the traffic to a pcapng file.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/yerden/go-afpacket/afpacket"
)

var (
	deviceSpec = flag.String("i", "", "device spec, e.g. eth0 or eth0:eth1")
	snaplen    = flag.Int("s", 65536, "capture length per packet")
	timeout    = flag.Duration("t", 100*time.Millisecond, "poll timeout")
	count      = flag.Int("c", 0, "number of packets to capture, 0 for unbounded")
	pcapFile   = flag.String("w", "out.pcapng", "pcapng output file")
)

func main() {
	flag.Parse()
	if *deviceSpec == "" {
		log.Fatal("-i is required")
	}

	ctx, err := afpacket.Initialize(*deviceSpec, afpacket.ModePassive, *snaplen, *timeout,
		afpacket.WithBufferSizeFromEnv())
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Shutdown()

	if err := ctx.Start(); err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*pcapFile)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Flush()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		ctx.BreakLoop()
	}()

	n := 0
	for *count == 0 || n < *count {
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

		ci := gopacket.CaptureInfo{
			Timestamp:      msg.Header.Timestamp,
			CaptureLength:  msg.Header.CapLen,
			Length:         msg.Header.WireLen,
			InterfaceIndex: 0,
		}
		if err := w.WritePacket(ci, msg.Data); err != nil {
			log.Println("write error:", err)
		}

		if err := ctx.FinalizeMessage(msg, afpacket.VerdictPass); err != nil {
			log.Println("finalize error:", err)
		}
		n++
	}

	log.Printf("captured %d packets to %s\n", n, *pcapFile)
}
