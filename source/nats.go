/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package source

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
)

// NATSSource subscribes to a NATS subject and treats each message payload
// as one wire-framed packet - the message-bus equivalent of UDPSource's
// one-datagram-one-packet framing.
type NATSSource struct {
	base
	url     string
	subject string
	mm      *memsys.MMSA

	conn *nats.Conn
	sub  *nats.Subscription
}

func NewNATSSource(name, url, subject string, mm *memsys.MMSA) *NATSSource {
	return &NATSSource{base: newBase(name), url: url, subject: subject, mm: mm}
}

func (s *NATSSource) Start() error {
	conn, err := nats.Connect(s.url, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		s.emitErr(fmt.Errorf("source %s: nats async error: %w", s.name, err))
	}))
	if err != nil {
		return fmt.Errorf("source %s: connect %s: %w", s.name, s.url, err)
	}
	sub, err := conn.Subscribe(s.subject, s.onMessage)
	if err != nil {
		conn.Close()
		return fmt.Errorf("source %s: subscribe %s: %w", s.name, s.subject, err)
	}
	s.conn = conn
	s.sub = sub
	return nil
}

func (s *NATSSource) Stop() error {
	close(s.stopCh)
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func (s *NATSSource) onMessage(msg *nats.Msg) {
	n := len(msg.Data)
	if n < packet.HeaderSize {
		s.emitErr(fmt.Errorf("source %s: nats message shorter than header (%d bytes)", s.name, n))
		return
	}
	pb, err := s.mm.Acquire(n)
	if err != nil {
		s.emitErr(fmt.Errorf("source %s: %w", s.name, err))
		return
	}
	copy(pb.Bytes(), msg.Data)
	s.emit(packet.New(pb, n))
}
