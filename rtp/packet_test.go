// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package rtp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := Unmarshal(make([]byte, 11))
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestMarshalUnmarshalFields(t *testing.T) {
	p := Packet{
		Header: Header{
			Version:     2,
			Padding:     true,
			Ext:         false,
			CSRCCount:   3,
			Marker:      true,
			PayloadType: 101,
			Sequence:    0xBEEF,
			Timestamp:   0xDEADBEEF,
			SSRC:        0x11223344,
		},
		Payload: []byte{1, 2, 3, 4},
	}

	buf := Marshal(p)
	require.Len(t, buf, HeaderSize+4)

	got, err := Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, p.Header, got.Header)
	assert.Equal(t, p.Payload, got.Payload)
}

// TestRoundTripProperty is the load-bearing invariant: for any byte
// string of length >= HeaderSize, packing what we unpacked reproduces
// the original bytes exactly, even when the decoded version isn't 2 and
// even though CSRC words (if any) are left inside Payload untouched.
func TestRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		n := HeaderSize + rng.Intn(64)
		b := make([]byte, n)
		rng.Read(b)

		pkt, err := Unmarshal(b)
		require.NoError(t, err)

		got := Marshal(pkt)
		assert.Equal(t, b, got, "round trip mismatch for input %x", b)
	}
}

func TestRoundTripPreservesNonStandardVersion(t *testing.T) {
	b := make([]byte, HeaderSize)
	b[0] = 0xFF // version=3, padding, ext, csrc=15 all set
	b[1] = 0xFF // marker + payload_type=127

	pkt, err := Unmarshal(b)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pkt.Version)
	assert.Equal(t, b, Marshal(pkt))
}

func TestCSRCBytesKeptInPayload(t *testing.T) {
	// csrc_items=1 contributes a 4 byte CSRC word which this codec does
	// not split out of Payload.
	h := Header{Version: 2, CSRCCount: 1, PayloadType: 0, Sequence: 1, Timestamp: 160, SSRC: 42}
	csrcWord := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	payload := append(append([]byte{}, csrcWord...), []byte{1, 2, 3}...)

	buf := Marshal(Packet{Header: h, Payload: payload})
	got, err := Unmarshal(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.CSRCCount)
	assert.Equal(t, payload, got.Payload)
}

func TestEventRoundTrip(t *testing.T) {
	ev := Event{EventID: 5, EndOfEvent: true, Reserved: true, Volume: 0x2A, Duration: 4000}
	buf := MarshalEvent(ev)
	require.Len(t, buf, EventSize)

	got, err := UnmarshalEvent(buf)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestEventUnmarshalShort(t *testing.T) {
	_, err := UnmarshalEvent([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformedPacket)
}

// TestComposedRoundTrip covers the |b| == 16 composed property from the
// spec: an RTP packet whose payload is itself an RFC 2833 event survives
// unpack -> repack of both layers.
func TestComposedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		b := make([]byte, HeaderSize+EventSize)
		rng.Read(b)

		pkt, err := Unmarshal(b)
		require.NoError(t, err)

		ev, err := UnmarshalEvent(pkt.Payload)
		require.NoError(t, err)

		pkt.Payload = MarshalEvent(ev)
		assert.Equal(t, b, Marshal(pkt))
	}
}

func TestDTMFMap(t *testing.T) {
	cases := map[rune]uint8{
		'0': 0, '9': 9, '*': 10, '#': 11, 'A': 12, 'D': 15, '⚡': 16,
	}
	for digit, want := range cases {
		id, ok := DTMFEventID(digit)
		require.True(t, ok)
		assert.Equal(t, want, id)

		back, ok := DTMFRune(id)
		require.True(t, ok)
		assert.Equal(t, digit, back)
	}

	_, ok := DTMFEventID('x')
	assert.False(t, ok)
	_, ok = DTMFRune(200)
	assert.False(t, ok)
}
