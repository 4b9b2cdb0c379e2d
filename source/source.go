// Package source implements the uniform source adapter and its concrete
// transports: UDP, TCP, file-replay, and NATS.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package source

import "github.com/signalpath/telepipe/packet"

// Source is the uniform lifecycle every packet origin implements. The
// dispatcher is the only consumer: a source never touches the router or
// registry directly.
type Source interface {
	Name() string
	Start() error
	Stop() error
	Pause() error
	Resume() error

	// Packets streams successfully decoded packets to the owner.
	Packets() <-chan *packet.Packet
	// Errors streams transport-level failures; the channel is never closed,
	// not even by Stop.
	Errors() <-chan error
}

// base provides the channel plumbing and pause/resume gate shared by every
// concrete adapter, so each adapter only implements its transport loop.
type base struct {
	name     string
	packets  chan *packet.Packet
	errs     chan error
	pausedCh chan bool // buffered size 1, holds current pause state
	stopCh   chan struct{}
}

func newBase(name string) base {
	b := base{
		name:     name,
		packets:  make(chan *packet.Packet, 1024),
		errs:     make(chan error, 64),
		pausedCh: make(chan bool, 1),
		stopCh:   make(chan struct{}),
	}
	b.pausedCh <- false
	return b
}

func (b *base) Name() string                       { return b.name }
func (b *base) Packets() <-chan *packet.Packet      { return b.packets }
func (b *base) Errors() <-chan error                { return b.errs }

func (b *base) Pause() error {
	<-b.pausedCh
	b.pausedCh <- true
	return nil
}

func (b *base) Resume() error {
	<-b.pausedCh
	b.pausedCh <- false
	return nil
}

func (b *base) isPaused() bool {
	p := <-b.pausedCh
	b.pausedCh <- p
	return p
}

func (b *base) emit(pkt *packet.Packet) {
	if b.isPaused() {
		pkt.Release()
		return
	}
	select {
	case b.packets <- pkt:
	case <-b.stopCh:
		pkt.Release()
	}
}

func (b *base) emitErr(err error) {
	select {
	case b.errs <- err:
	default: // error stream is best-effort; never block the transport loop
	}
}
