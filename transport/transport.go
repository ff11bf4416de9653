// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package transport binds a UDP socket for one RTP stream: it sends
// packed bytes best-effort and pushes parsed, timestamped datagrams back
// to whoever is listening. Narrowed to the single unicast send/recv path
// this engine needs (no RTCP companion socket here; see rtcpreport).
package transport

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/aiortp/aiortp/rtp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotReady is returned by Send when no remote endpoint has been set
// via Connect, and by Send/Connect once the transport has been closed.
// New binds the socket before returning, so a live Transport is always
// bound.
var ErrNotReady = errors.New("transport: not ready")

// RecvBufSize is the buffer size used to read inbound datagrams. 1500
// covers the common Ethernet MTU; RTP payloads never approach it.
var RecvBufSize = 1500

// Packet pairs a parsed RTP packet with its wall-clock arrival time, the
// analyzer's unit of input.
type Packet struct {
	Arrival time.Time
	RTP     rtp.Packet
}

// Transport owns one UDP socket for the lifetime of a Stream. The socket
// is never connected at the OS level: Connect only records the remote
// endpoint, Send is a plain WriteTo to it, and ReceiveLoop accepts
// datagrams from any sender.
type Transport struct {
	conn  *net.UDPConn
	laddr *net.UDPAddr
	raddr atomic.Pointer[net.UDPAddr]
	ready atomic.Bool

	log zerolog.Logger
}

// New binds a UDP socket to localAddr. The transport is Ready as soon as
// this returns successfully; Send before a remote address is set via
// Connect fails with ErrNotReady.
func New(localAddr *net.UDPAddr) (*Transport, error) {
	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		conn:  conn,
		laddr: conn.LocalAddr().(*net.UDPAddr),
		log:   log.With().Str("caller", "transport").Logger(),
	}
	t.ready.Store(true)
	return t, nil
}

// Connect records the remote endpoint Send will target. It does not
// itself open anything new; the socket is already bound by New.
func (t *Transport) Connect(remoteAddr *net.UDPAddr) error {
	if !t.ready.Load() {
		return ErrNotReady
	}
	t.raddr.Store(remoteAddr)
	return nil
}

// Ready reports whether the socket has been bound.
func (t *Transport) Ready() bool {
	return t.ready.Load()
}

// Connected reports whether a remote endpoint has been set via Connect
// — the socket is bound and Send will actually reach a peer.
func (t *Transport) Connected() bool {
	return t.ready.Load() && t.raddr.Load() != nil
}

// LocalAddr is the bound local address (with an ephemeral port resolved
// if the caller asked for port 0).
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.laddr
}

// Send writes b to the connected remote address. I/O errors here are
// the caller's to log; Send itself never blocks the scheduler's tick —
// it is a single non-blocking WriteTo.
func (t *Transport) Send(b []byte) error {
	if !t.ready.Load() {
		return ErrNotReady
	}
	raddr := t.raddr.Load()
	if raddr == nil {
		return ErrNotReady
	}
	_, err := t.conn.WriteTo(b, raddr)
	return err
}

// ReceiveLoop blocks reading datagrams until the socket is closed,
// parsing each into a Packet and handing it to onPacket. A malformed
// datagram is logged and dropped — one bad packet never stops the loop.
func (t *Transport) ReceiveLoop(onPacket func(Packet)) error {
	buf := make([]byte, RecvBufSize)
	for {
		n, _, err := t.conn.ReadFrom(buf)
		if err != nil {
			return err
		}

		arrival := time.Now()
		pkt, err := rtp.Unmarshal(buf[:n])
		if err != nil {
			t.log.Debug().Err(err).Msg("dropping malformed RTP datagram")
			continue
		}

		onPacket(Packet{Arrival: arrival, RTP: pkt})
	}
}

// Close releases the underlying socket, unblocking any ReceiveLoop.
func (t *Transport) Close() error {
	t.ready.Store(false)
	return t.conn.Close()
}
