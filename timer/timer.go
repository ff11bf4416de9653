// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package timer provides the monotonic periodic ticker the scheduler
// drives packetization from: invoke a callback every N milliseconds and
// report how many periods, if any, were missed since the last tick.
package timer

import (
	"sync"
	"time"
)

// Tick is delivered to the callback on every period. Overrun is the
// number of periods that elapsed without a corresponding callback
// invocation — non-zero only when the callback (or the goroutine
// delivering it) fell behind the ticker.
type Tick struct {
	At      time.Time
	Overrun int
}

// Handle is the live handle to a running periodic timer.
type Handle interface {
	// Close stops the ticker. Idempotent.
	Close()
}

// Ticker drives callback every interval on its own goroutine, until
// Close is called. It never restarts on idle — the caller owns the
// handle's lifetime.
type Ticker struct {
	t         *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// Start begins ticking at interval, invoking callback on a dedicated
// goroutine for every tick. The ticker's own wakeups happen on a
// separate runtime timer goroutine; only the callback itself runs on
// the goroutine Start spawns, so a caller that needs the callback
// synchronized with its own state (the scheduler does) must still do
// that synchronization itself.
func Start(interval time.Duration, callback func(Tick)) *Ticker {
	t := &Ticker{
		t:    time.NewTicker(interval),
		done: make(chan struct{}),
	}

	go func() {
		last := time.Now()
		for {
			select {
			case <-t.done:
				return
			case now := <-t.t.C:
				overrun := 0
				if elapsed := now.Sub(last); elapsed > interval+interval/2 {
					overrun = int(elapsed/interval) - 1
				}
				last = now
				callback(Tick{At: now, Overrun: overrun})
			}
		}
	}()

	return t
}

// Close stops the ticker and signals its goroutine to exit; it does
// not wait for that goroutine to actually finish. A callback invocation
// already in flight may still run to completion after Close returns —
// callers that call Close from within their own callback (as the
// scheduler does on a fatal error) would otherwise deadlock waiting on
// themselves. Idempotent.
func (t *Ticker) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.t.Stop()
	})
}
