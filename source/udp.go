/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package source

import (
	"fmt"
	"net"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
)

// UDPSource reads whole wire-framed packets from a UDP socket, one
// datagram per packet.
type UDPSource struct {
	base
	addr string
	mm   *memsys.MMSA

	conn *net.UDPConn
}

func NewUDPSource(name, addr string, mm *memsys.MMSA) *UDPSource {
	return &UDPSource{base: newBase(name), addr: addr, mm: mm}
}

func (s *UDPSource) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("source %s: resolve %s: %w", s.name, s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("source %s: listen %s: %w", s.name, s.addr, err)
	}
	s.conn = conn
	go s.readLoop()
	return nil
}

func (s *UDPSource) Stop() error {
	close(s.stopCh)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *UDPSource) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.emitErr(fmt.Errorf("source %s: read: %w", s.name, err))
			continue
		}
		if n < packet.HeaderSize {
			s.emitErr(fmt.Errorf("source %s: datagram shorter than header (%d bytes)", s.name, n))
			continue
		}
		pb, err := s.mm.Acquire(n)
		if err != nil {
			s.emitErr(fmt.Errorf("source %s: %w", s.name, err))
			continue
		}
		copy(pb.Bytes(), buf[:n])
		s.emit(packet.New(pb, n))
	}
}
