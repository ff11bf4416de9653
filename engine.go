// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package aiortp is the composition root: it wires rtp, source,
// transport, stream, scheduler and analyzer into the RTP engine a SIP
// stack embeds to send and receive media for its calls.
package aiortp

import (
	"net"
	"time"

	"github.com/aiortp/aiortp/scheduler"
	"github.com/aiortp/aiortp/stream"
)

// Engine owns the single scheduler every Stream it creates is driven
// by. One Engine per SIP stack instance is the expected usage; one
// Scheduler ticks all of that instance's active calls.
type Engine struct {
	Scheduler *scheduler.Scheduler
}

// NewEngine constructs an Engine with a scheduler ticking at interval
// (scheduler.DefaultInterval, 20ms, if interval <= 0).
func NewEngine(interval time.Duration) *Engine {
	return &Engine{Scheduler: scheduler.New(interval)}
}

// NewStream binds a new local RTP endpoint driven by this engine's
// scheduler, ready for Describe/Negotiate/Schedule.
func (e *Engine) NewStream(localAddr *net.UDPAddr, ptime time.Duration) (*stream.Stream, error) {
	return stream.New(localAddr, e.Scheduler, int(ptime.Milliseconds()))
}

// Close stops the scheduler: every source it still holds is stopped,
// and through it every Stream.Schedule call currently blocked on that
// source's completion returns.
func (e *Engine) Close() {
	e.Scheduler.Stop()
}
