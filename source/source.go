// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package source implements the three outgoing RTP packet generators the
// scheduler pulls from: a PCM file player, a synthesised tone, and an
// RFC 2833 DTMF digit sequence. A Source is a tagged variant behind one
// interface — the scheduler only ever calls Next and Stop.
package source

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/aiortp/aiortp/rtp"
)

// ErrExhausted is returned by Next once a source has no more packets to
// emit. It is the normal, successful termination of a source, distinct
// from Stop (external cancellation).
var ErrExhausted = errors.New("source: exhausted")

// State is a source's lifecycle position. From Active it transitions to
// exactly one of Exhausted or Stopped; both are absorbing.
type State int

const (
	StateActive State = iota
	StateExhausted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Source is the single operation the scheduler needs from any outgoing
// packet generator. Next returns ErrExhausted once the source is done;
// any other error is a construction-time-class failure that should not
// normally occur once a source is scheduled. Stop is idempotent and may
// be called concurrently with Next from the scheduler's tick goroutine.
type Source interface {
	// Next produces the next packet, or ErrExhausted when the source has
	// no more packets (the Exhausted terminal state).
	Next() (rtp.Packet, error)
	// Stop cancels the source (the Stopped terminal state). Idempotent.
	Stop()
	// State reports the current lifecycle position.
	State() State
	// Done is closed once the source reaches either terminal state.
	Done() <-chan struct{}
}

// lifecycle is the shared terminal-state bookkeeping embedded by every
// concrete Source: a one-shot "reached a terminal state" signal plus the
// absorbing state itself, guarded by a mutex since Stop can race Next.
type lifecycle struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
}

func newLifecycle() lifecycle {
	return lifecycle{done: make(chan struct{})}
}

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) Done() <-chan struct{} {
	return l.done
}

// finish moves to a terminal state if still active. Returns false if
// already terminal (so callers don't double-close done or re-fire
// exhaustion semantics).
func (l *lifecycle) finish(state State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateActive {
		return false
	}
	l.state = state
	close(l.done)
	return true
}

// Stop is shared by every concrete Source: externally cancelling is
// always the same bookkeeping regardless of generator kind.
func (l *lifecycle) Stop() {
	l.finish(StateStopped)
}

// bootstrap picks an initial sequence number and SSRC for a new source.
// Both must differ across concurrently active streams; tests never
// depend on the specific magic values, only that Next's seq/ssrc stay
// constant and sequence increases monotonically from here.
func bootstrap() (seq uint16, ssrc uint32) {
	// Start above zero (seq >= 1, arbitrary) and randomize, so
	// concurrently active streams don't share a starting point.
	seq = (uint16(rand.Uint32()) >> 1) + 1
	ssrc = rand.Uint32()
	return
}
