// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/aiortp/aiortp/rtp"
	"github.com/aiortp/aiortp/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource yields exactly n packets then exhausts, matching the
// source.Source contract without pulling in a real codec/audio path.
type fakeSource struct {
	mu    sync.Mutex
	n     int
	i     int
	state source.State
	done  chan struct{}
}

func newFakeSource(n int) *fakeSource {
	return &fakeSource{n: n, done: make(chan struct{})}
}

func (f *fakeSource) Next() (rtp.Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != source.StateActive {
		return rtp.Packet{}, source.ErrExhausted
	}
	if f.i >= f.n {
		f.state = source.StateExhausted
		close(f.done)
		return rtp.Packet{}, source.ErrExhausted
	}

	pkt := rtp.Packet{Header: rtp.Header{Version: 2, Sequence: uint16(f.i)}}
	f.i++
	return pkt, nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == source.StateActive {
		f.state = source.StateStopped
		close(f.done)
	}
}

func (f *fakeSource) State() source.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) Done() <-chan struct{} { return f.done }

// fakeTransport records every Send call's arrival time instead of
// touching a real socket.
type fakeTransport struct {
	mu sync.Mutex
	at []time.Time
}

func (f *fakeTransport) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.at = append(f.at, time.Now())
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.at)
}

// TestSchedulerCadence checks the core cadence guarantee: with a
// synthetic source yielding N packets, after N ticks exactly N sends
// have happened and the source's completion signal fires with success.
func TestSchedulerCadence(t *testing.T) {
	const n = 5
	sched := New(10 * time.Millisecond)
	defer sched.Stop()

	tr := &fakeTransport{}
	src := newFakeSource(n)
	sched.Add(tr, src)

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("source never completed")
	}

	assert.Equal(t, source.StateExhausted, src.State())
	assert.Equal(t, n, tr.count())
}

func TestSchedulerAddIsIdempotentOverTransport(t *testing.T) {
	sched := New(5 * time.Millisecond)
	defer sched.Stop()

	tr := &fakeTransport{}
	first := newFakeSource(100)
	second := newFakeSource(100)

	sched.Add(tr, first)
	sched.Add(tr, second) // no-op: tr already registered

	time.Sleep(30 * time.Millisecond)
	sched.Unregister(tr)

	assert.Equal(t, source.StateStopped, first.State())
	assert.Equal(t, source.StateActive, second.State())
}

func TestSchedulerUnregisterStopsSource(t *testing.T) {
	sched := New(5 * time.Millisecond)
	defer sched.Stop()

	tr := &fakeTransport{}
	src := newFakeSource(1000)
	sched.Add(tr, src)

	time.Sleep(15 * time.Millisecond)
	sched.Unregister(tr)

	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to close on Unregister")
	}
	assert.Equal(t, source.StateStopped, src.State())

	sent := tr.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, sent, tr.count(), "no further sends after unregister")
}

func TestSchedulerStopDrainsAllSources(t *testing.T) {
	sched := New(5 * time.Millisecond)

	srcs := make([]*fakeSource, 3)
	for i := range srcs {
		srcs[i] = newFakeSource(1000)
		sched.Add(&fakeTransport{}, srcs[i])
	}

	sched.Stop()
	for _, s := range srcs {
		require.Equal(t, source.StateStopped, s.State())
	}
}
