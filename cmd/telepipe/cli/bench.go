/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/registry"
	"github.com/signalpath/telepipe/router"
)

func benchCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure router enqueue/deliver throughput with a synthetic packet stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 100000, "number of synthetic packets to route")
	return cmd
}

func runBench(count int) error {
	mm := memsys.New("bench", memsys.DefaultClasses, 8192)
	reg := registry.New()

	delivered := make(chan struct{}, count)
	reg.Subscribe("bench", 1, 0, func(*packet.Packet) { delivered <- struct{}{} })

	rtr := router.New(router.DefaultConfig(), reg)
	rtr.Start()
	defer rtr.Stop()

	start := time.Now()
	for i := 0; i < count; i++ {
		pkt, err := packet.Build(mm, packet.Header{ID: 1, Sequence: uint32(i)}, []byte{1, 2, 3, 4})
		if err != nil {
			return err
		}
		if err := rtr.RouteAuto(pkt); err != nil {
			pkt.Release()
		}
	}

	for i := 0; i < count; i++ {
		<-delivered
	}
	elapsed := time.Since(start)
	fmt.Printf("routed %d packets in %s (%.0f pkt/s)\n", count, elapsed, float64(count)/elapsed.Seconds())
	return nil
}
