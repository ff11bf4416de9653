// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package scheduler owns the single periodic ticker that drives every
// active outgoing RTP stream. On each tick it pulls exactly one packet
// from every registered source and hands it to that source's transport,
// then compacts finished sources out of its map. Every stream advances
// in lockstep on one clock, which is what keeps RTP timestamps spaced
// evenly across concurrently active calls.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/aiortp/aiortp/rtp"
	"github.com/aiortp/aiortp/source"
	"github.com/aiortp/aiortp/timer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the scheduler's tick period when the caller does
// not specify one: one packet every 20ms, the common G.711 ptime.
const DefaultInterval = 20 * time.Millisecond

// ErrTimerOverrun is the scheduler's single unrecoverable runtime error:
// the underlying ticker ran behind its own period, which means RTP
// spacing has already been compromised. It is fatal and is never
// retried or caught up.
var ErrTimerOverrun = errors.New("scheduler: timer overrun")

// Transport is the send-side dependency a Scheduler needs from a
// registered stream: pack-and-send bytes, best effort. Satisfied by
// *transport.Transport.
type Transport interface {
	Send([]byte) error
}

// TickObserver is an optional extension a Transport may implement to be
// notified of the packet about to be sent, before it is marshalled.
// The stream package's RTCP-reporting transport wrapper uses this to fold
// outgoing RTP timestamps/octet counts into an rtcpreport sender report
// without the scheduler importing rtcpreport.
type TickObserver interface {
	ObserveTick(pkt rtp.Packet)
}

// Scheduler drives an arbitrary set of (Transport, Source) pairs from a
// single ticker. The zero value is not usable; construct with New.
type Scheduler struct {
	mu      sync.Mutex
	sources map[Transport]source.Source
	order   []Transport

	interval time.Duration
	tick     *timer.Ticker

	fatalOnce sync.Once
	fatalCh   chan error

	log zerolog.Logger
}

// New returns a Scheduler ticking at interval (DefaultInterval if <= 0).
// The ticker is not started until the first Add.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		sources:  make(map[Transport]source.Source),
		interval: interval,
		fatalCh:  make(chan error, 1),
		log:      log.With().Str("caller", "scheduler").Logger(),
	}
}

// Fatal delivers ErrTimerOverrun exactly once, the moment the scheduler
// detects a compromised tick. A scheduler that never overruns never
// sends on this channel.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatalCh
}

// Add registers source to be pulled from every tick and sent via
// transport. It is idempotent over transport: re-adding an already
// registered transport is a no-op. The ticker is lazily started on the
// first Add and never restarted on idle.
func (s *Scheduler) Add(transport Transport, src source.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[transport]; exists {
		return
	}
	s.sources[transport] = src
	s.order = append(s.order, transport)

	if s.tick == nil {
		s.tick = timer.Start(s.interval, s.onTick)
	}
}

// Unregister removes transport's entry immediately and stops its
// source. A no-op if transport is not registered.
func (s *Scheduler) Unregister(transport Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(transport)
}

// Stop drains and stops every registered source and halts the ticker.
// Atomic from the scheduler's point of view: no tick can observe a
// partially-drained map.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	for _, t := range s.order {
		s.sources[t].Stop()
	}
	s.sources = make(map[Transport]source.Source)
	s.order = nil
	if s.tick != nil {
		s.tick.Close()
		s.tick = nil
	}
}

func (s *Scheduler) removeLocked(transport Transport) {
	src, ok := s.sources[transport]
	if !ok {
		return
	}
	src.Stop()
	delete(s.sources, transport)
	for i, t := range s.order {
		if t == transport {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// onTick runs on the ticker's delivery goroutine. It must never block on
// anything but the send itself: packing and sendto are synchronous and
// non-suspending, so one slow source can't delay the rest of the tick.
func (s *Scheduler) onTick(tick timer.Tick) {
	if tick.Overrun > 0 {
		s.log.Error().Int("overrun", tick.Overrun).Msg("ticker overrun, RTP spacing compromised")
		s.fail(ErrTimerOverrun)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Do not mutate s.order/s.sources while walking it; collect the
	// finished entries and compact after the walk instead, so removing a
	// source mid-tick never skips or reorders the remaining sends.
	var finished []Transport
	for _, t := range s.order {
		src := s.sources[t]
		pkt, err := src.Next()
		if errors.Is(err, source.ErrExhausted) {
			finished = append(finished, t)
			continue
		}
		if err != nil {
			s.log.Error().Err(err).Msg("source failed mid-tick")
			continue
		}

		if obs, ok := t.(TickObserver); ok {
			obs.ObserveTick(pkt)
		}

		if err := t.Send(rtp.Marshal(pkt)); err != nil {
			s.log.Debug().Err(err).Msg("sendto failed, dropping packet")
		}
	}

	for _, t := range finished {
		delete(s.sources, t)
	}
	if len(finished) > 0 {
		compacted := s.order[:0:0]
		for _, t := range s.order {
			if _, ok := s.sources[t]; ok {
				compacted = append(compacted, t)
			}
		}
		s.order = compacted
	}
}

func (s *Scheduler) fail(err error) {
	s.fatalOnce.Do(func() {
		select {
		case s.fatalCh <- err:
		default:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopLocked()
	})
}
