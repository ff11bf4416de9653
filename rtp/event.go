// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package rtp

import "encoding/binary"

// Event is an RFC 2833 (RFC 4733) telephone-event payload: the 4 byte
// body carried as the Payload of a Packet whose PayloadType is the
// negotiated telephone-event type (101 by convention in this module).
type Event struct {
	EventID    uint8 // 0-16 per the DTMF map
	EndOfEvent bool
	Reserved   bool
	Volume     uint8  // 6 bits
	Duration   uint16 // sample-clock units
}

// UnmarshalEvent parses a 4 byte RFC 2833 event payload. It fails with
// ErrMalformedPacket when buf is shorter than EventSize.
func UnmarshalEvent(buf []byte) (Event, error) {
	if len(buf) < EventSize {
		return Event{}, ErrMalformedPacket
	}

	b1 := buf[1]
	return Event{
		EventID:    buf[0],
		EndOfEvent: (b1>>7)&0x1 != 0,
		Reserved:   (b1>>6)&0x1 != 0,
		Volume:     b1 & 0x3F,
		Duration:   binary.BigEndian.Uint16(buf[2:4]),
	}, nil
}

// MarshalEvent packs ev into the 4 byte wire form.
func MarshalEvent(ev Event) []byte {
	buf := make([]byte, EventSize)
	MarshalEventTo(ev, buf)
	return buf
}

// MarshalEventTo packs ev into buf, which must be at least EventSize bytes.
func MarshalEventTo(ev Event, buf []byte) {
	buf[0] = ev.EventID

	var b1 byte
	if ev.EndOfEvent {
		b1 |= 1 << 7
	}
	if ev.Reserved {
		b1 |= 1 << 6
	}
	b1 |= ev.Volume & 0x3F
	buf[1] = b1

	binary.BigEndian.PutUint16(buf[2:4], ev.Duration)
}
