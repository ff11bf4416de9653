// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package rtcpreport periodically emits an RTCP sender report over a
// companion socket, send side only: it never reads back a receiver
// report, so there is no RTT or remote jitter estimate here.
package rtcpreport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often a Reporter emits a sender report when
// the caller does not specify one.
const DefaultInterval = 5 * time.Second

var ntpEpochOffset int64 = 2208988800

// ntpTimestamp converts t to an NTP 32.32 fixed point timestamp.
func ntpTimestamp(t time.Time) uint64 {
	seconds := t.Unix() + ntpEpochOffset
	frac := (float64(t.Nanosecond()) / 1e9) * (1 << 32)
	return (uint64(seconds) << 32) | uint64(frac)
}

// counters is the write-side bookkeeping a Reporter folds into each
// sender report, fed by the scheduler/source as packets go out.
type counters struct {
	packets    atomic.Uint32
	octets     atomic.Uint32
	lastTS     atomic.Uint32
	lastSendMu sync.Mutex
	lastSend   time.Time
}

// Reporter opens a companion UDP socket at the rtpPort+1 convention and
// emits an RTCP SenderReport on it every interval. It is entirely
// optional: a Stream works identically with or without one attached.
type Reporter struct {
	conn     *net.UDPConn
	raddr    *net.UDPAddr
	ssrc     uint32
	interval time.Duration

	c counters

	stop     chan struct{}
	stopOnce sync.Once

	log zerolog.Logger
}

// NewReporter binds a UDP socket at localAddr (conventionally
// rtpPort+1) and targets remoteAddr (also rtpPort+1 on the peer) for
// periodic sender reports carrying ssrc.
func NewReporter(localAddr, remoteAddr *net.UDPAddr, ssrc uint32, interval time.Duration) (*Reporter, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, err
	}

	return &Reporter{
		conn:     conn,
		raddr:    remoteAddr,
		ssrc:     ssrc,
		interval: interval,
		stop:     make(chan struct{}),
		log:      log.With().Str("caller", "rtcpreport").Logger(),
	}, nil
}

// Note records one outgoing RTP packet's timestamp and payload size, so
// the next sender report reflects it. Safe to call from the scheduler's
// tick goroutine.
func (r *Reporter) Note(rtpTimestamp uint32, payloadLen int) {
	r.c.packets.Add(1)
	r.c.octets.Add(uint32(payloadLen))
	r.c.lastTS.Store(rtpTimestamp)
	r.c.lastSendMu.Lock()
	r.c.lastSend = time.Now()
	r.c.lastSendMu.Unlock()
}

// Start runs the periodic report loop until Close is called.
func (r *Reporter) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case now := <-ticker.C:
				if err := r.writeReport(now); err != nil {
					r.log.Debug().Err(err).Msg("sender report write failed")
				}
			}
		}
	}()
}

func (r *Reporter) writeReport(now time.Time) error {
	r.c.lastSendMu.Lock()
	lastSend := r.c.lastSend
	r.c.lastSendMu.Unlock()

	var rtpTimeOffset float64
	if !lastSend.IsZero() {
		rtpTimeOffset = now.Sub(lastSend).Seconds() * 8000
	}

	sr := &rtcp.SenderReport{
		SSRC:        r.ssrc,
		NTPTime:     ntpTimestamp(now),
		RTPTime:     r.c.lastTS.Load() + uint32(rtpTimeOffset),
		PacketCount: r.c.packets.Load(),
		OctetCount:  r.c.octets.Load(),
	}

	data, err := sr.Marshal()
	if err != nil {
		return err
	}

	_, err = r.conn.WriteTo(data, r.raddr)
	return err
}

// Close stops the report loop and releases the socket. Idempotent.
func (r *Reporter) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	return r.conn.Close()
}
