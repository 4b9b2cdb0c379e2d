/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
)

// TCPSource accepts connections on addr and reads wire-framed packets off
// each, delimited by the fixed header's payload-size field (a TCP stream
// has no datagram boundary, unlike UDP).
type TCPSource struct {
	base
	addr string
	mm   *memsys.MMSA

	listener net.Listener
}

func NewTCPSource(name, addr string, mm *memsys.MMSA) *TCPSource {
	return &TCPSource{base: newBase(name), addr: addr, mm: mm}
}

func (s *TCPSource) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("source %s: listen %s: %w", s.name, s.addr, err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

func (s *TCPSource) Stop() error {
	close(s.stopCh)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *TCPSource) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.emitErr(fmt.Errorf("source %s: accept: %w", s.name, err))
			continue
		}
		go s.connLoop(conn)
	}
}

func (s *TCPSource) connLoop(conn net.Conn) {
	defer conn.Close()
	header := make([]byte, packet.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				s.emitErr(fmt.Errorf("source %s: read header: %w", s.name, err))
			}
			return
		}
		payloadSize := binary.LittleEndian.Uint32(header[20:24])
		total := packet.HeaderSize + int(payloadSize)

		pb, err := s.mm.Acquire(total)
		if err != nil {
			s.emitErr(fmt.Errorf("source %s: %w", s.name, err))
			return
		}
		copy(pb.Bytes(), header)
		if payloadSize > 0 {
			if _, err := io.ReadFull(conn, pb.Bytes()[packet.HeaderSize:total]); err != nil {
				s.emitErr(fmt.Errorf("source %s: read payload: %w", s.name, err))
				pb.Release()
				return
			}
		}
		s.emit(packet.New(pb, total))
	}
}
