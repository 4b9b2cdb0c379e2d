/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package source

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
)

// FileSource replays a capture file of back-to-back wire-framed packets at
// a configurable pace. Each replay run is tagged with a session id (the
// original's file-replay diagnostics referenced a capture run by name;
// google/uuid gives each run a stable, collision-free identifier instead).
type FileSource struct {
	base
	path       string
	mm         *memsys.MMSA
	interPkt   time.Duration
	SessionID  uuid.UUID
}

func NewFileSource(name, path string, mm *memsys.MMSA, interPkt time.Duration) *FileSource {
	return &FileSource{
		base:      newBase(name),
		path:      path,
		mm:        mm,
		interPkt:  interPkt,
		SessionID: uuid.New(),
	}
}

func (s *FileSource) Start() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("source %s: open %s: %w", s.name, s.path, err)
	}
	go s.replayLoop(f)
	return nil
}

func (s *FileSource) Stop() error {
	close(s.stopCh)
	return nil
}

func (s *FileSource) replayLoop(f *os.File) {
	defer f.Close()
	r := bufio.NewReaderSize(f, 64*1024)
	header := make([]byte, packet.HeaderSize)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		if _, err := io.ReadFull(r, header); err != nil {
			if err != io.EOF {
				s.emitErr(fmt.Errorf("source %s (session %s): read header: %w", s.name, s.SessionID, err))
			}
			return
		}
		payloadSize := binary.LittleEndian.Uint32(header[20:24])
		total := packet.HeaderSize + int(payloadSize)

		pb, err := s.mm.Acquire(total)
		if err != nil {
			s.emitErr(fmt.Errorf("source %s (session %s): %w", s.name, s.SessionID, err))
			return
		}
		copy(pb.Bytes(), header)
		if payloadSize > 0 {
			if _, err := io.ReadFull(r, pb.Bytes()[packet.HeaderSize:total]); err != nil {
				s.emitErr(fmt.Errorf("source %s (session %s): read payload: %w", s.name, s.SessionID, err))
				pb.Release()
				return
			}
		}
		s.emit(packet.New(pb, total))

		if s.interPkt > 0 {
			time.Sleep(s.interPkt)
		}
	}
}
