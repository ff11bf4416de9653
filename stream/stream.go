// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package stream ties one local UDP endpoint, its (possibly still
// unknown) remote peer, an outgoing source, and the scheduler that
// drives it into a single bidirectional RTP association.
package stream

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/aiortp/aiortp/rtcpreport"
	"github.com/aiortp/aiortp/rtp"
	"github.com/aiortp/aiortp/scheduler"
	"github.com/aiortp/aiortp/sdp"
	"github.com/aiortp/aiortp/source"
	"github.com/aiortp/aiortp/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPtime is the packet time, in milliseconds, Describe announces
// when the caller does not pick one.
const DefaultPtime = 20

// ErrCancelled is returned by Schedule when the stream was stopped while
// a source was still active, as opposed to the source exhausting on its
// own.
var ErrCancelled = errors.New("stream: cancelled")

// Stream is one bidirectional RTP association: a bound local transport,
// an optionally-negotiated remote address, and the incoming packet feed
// consumers (an analyzer, a DTMF watcher) read from.
type Stream struct {
	mu        sync.Mutex
	transport *transport.Transport
	// schedTransport is what gets registered with the scheduler. It is
	// s.transport until AttachRTCPReporter wraps it with one that also
	// folds packets into the reporter's counters.
	schedTransport scheduler.Transport
	scheduler      *scheduler.Scheduler
	ptime          int

	recv     chan transport.Packet
	recvOnce sync.Once
	stopOnce sync.Once

	log zerolog.Logger
}

// reportingTransport wraps a transport.Transport so the scheduler's
// per-tick packet is also folded into an attached rtcpreport.Reporter,
// without the scheduler itself knowing RTCP exists.
type reportingTransport struct {
	*transport.Transport
	reporter *rtcpreport.Reporter
}

func (r *reportingTransport) ObserveTick(pkt rtp.Packet) {
	r.reporter.Note(pkt.Timestamp, len(pkt.Payload))
}

// New binds a local UDP endpoint and returns a Stream ready to Describe
// or Negotiate. sched drives any source later registered via Schedule.
func New(localAddr *net.UDPAddr, sched *scheduler.Scheduler, ptime int) (*Stream, error) {
	if ptime <= 0 {
		ptime = DefaultPtime
	}

	t, err := transport.New(localAddr)
	if err != nil {
		return nil, fmt.Errorf("stream: bind local endpoint: %w", err)
	}

	return &Stream{
		transport:      t,
		schedTransport: t,
		scheduler:      sched,
		ptime:          ptime,
		recv:           make(chan transport.Packet, 64),
		log:            log.With().Str("caller", "stream").Logger(),
	}, nil
}

// AttachRTCPReporter arranges for every packet the scheduler sends on
// this stream's transport to also be folded into reporter's sender
// report counters. Optional: a Stream with no reporter attached behaves
// exactly as if RTCP did not exist.
func (s *Stream) AttachRTCPReporter(reporter *rtcpreport.Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedTransport = &reportingTransport{Transport: s.transport, reporter: reporter}
}

// Describe renders the SDP this stream announces for its bound local
// endpoint. Deterministic given (local address, ptime) — see sdp.Describe.
func (s *Stream) Describe() string {
	laddr := s.transport.LocalAddr()
	return sdp.Describe(laddr.IP.String(), laddr.Port, s.ptime)
}

// Negotiate parses the peer's SDP, sets the remote endpoint and starts
// the receive loop. Fails with sdp.ErrNegotiationFailed if the peer SDP
// is missing its m=audio or c=IN IP4 line.
func (s *Stream) Negotiate(peerSDP []byte) error {
	remote, err := sdp.ParseRemoteEndpoint(peerSDP)
	if err != nil {
		return err
	}

	ip := net.ParseIP(remote.Host)
	if ip == nil {
		return fmt.Errorf("%w: bad remote host %q", sdp.ErrNegotiationFailed, remote.Host)
	}

	if err := s.transport.Connect(&net.UDPAddr{IP: ip, Port: remote.Port}); err != nil {
		return fmt.Errorf("stream: open transport: %w", err)
	}

	s.startReceiving()
	return nil
}

// SetRemote is the non-SDP path to Negotiate, for callers that already
// know the peer's address (e.g. loopback tests).
func (s *Stream) SetRemote(remoteAddr *net.UDPAddr) error {
	if err := s.transport.Connect(remoteAddr); err != nil {
		return fmt.Errorf("stream: open transport: %w", err)
	}
	s.startReceiving()
	return nil
}

func (s *Stream) startReceiving() {
	s.recvOnce.Do(func() {
		go func() {
			err := s.transport.ReceiveLoop(func(pkt transport.Packet) {
				s.recv <- pkt
			})
			if err != nil {
				s.log.Debug().Err(err).Msg("receive loop exited")
			}
		}()
	})
}

// Schedule registers source with the scheduler and blocks until it
// either exhausts or the stream is stopped. The transport must already
// be open (via Negotiate or SetRemote) — Schedule does not itself learn
// a remote address.
func (s *Stream) Schedule(src source.Source) error {
	if !s.transport.Connected() {
		return transport.ErrNotReady
	}

	s.mu.Lock()
	target := s.schedTransport
	s.mu.Unlock()

	s.scheduler.Add(target, src)
	<-src.Done()

	if src.State() == source.StateStopped {
		return ErrCancelled
	}
	return nil
}

// Packets exposes the stream's incoming packet feed, parsed RTP with
// wall-clock arrival time, for an analyzer or a DTMF watcher to consume.
func (s *Stream) Packets() <-chan transport.Packet {
	return s.recv
}

// Stop deregisters any scheduled source and closes the transport.
// Idempotent; safe to call even if Schedule was never invoked.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		target := s.schedTransport
		s.mu.Unlock()

		s.scheduler.Unregister(target)
		s.transport.Close()
	})
}

// LocalAddr is the bound local address, useful for tests that need to
// wire two loopback streams together without going through SDP text.
func (s *Stream) LocalAddr() *net.UDPAddr {
	return s.transport.LocalAddr()
}

// Send is a direct, non-scheduled write — used by tests and by callers
// that want to inject an out-of-band packet (e.g. a single DTMF event)
// without registering a full Source.
func (s *Stream) Send(pkt rtp.Packet) error {
	return s.transport.Send(rtp.Marshal(pkt))
}
