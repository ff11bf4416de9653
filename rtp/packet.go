// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package rtp implements bit-exact pack/unpack of the RFC 3550 RTP header
// and the RFC 2833 telephone-event payload. Both directions are pure and
// total over any byte slice at least as long as the fixed header; the
// defining property is round-trip fidelity (Marshal(Unmarshal(b)) == b), not
// validation, so a decoded Header with Version != 2 must still pack back
// to the original bytes.
package rtp

import "encoding/binary"

// HeaderSize is the length, in bytes, of the fixed RTP header (RFC 3550
// section 5.1), not counting any CSRC words or payload.
const HeaderSize = 12

// EventSize is the length, in bytes, of an RFC 2833 telephone-event payload.
const EventSize = 4

// Header is the fixed 12 byte RTP header. CSRC words, if any
// (CSRCCount > 0), are not split out: they remain the leading bytes of
// Payload, exactly as received on the wire. This is deliberate — see
// Packet.Payload.
type Header struct {
	Version     uint8 // 2 bits, must be 2 when freshly constructed for sending
	Padding     bool
	Ext         bool
	CSRCCount   uint8 // 4 bits, 0-15; CSRC words themselves are not modelled
	Marker      bool
	PayloadType uint8 // 7 bits, 0-127
	Sequence    uint16
	Timestamp   uint32
	SSRC        uint32
}

// Packet is a parsed RTP header plus its payload. Payload is everything
// after the 12 byte fixed header, including any CSRC words the header
// claims via CSRCCount — this implementation never strips them, so
// downstream consumers of Payload must tolerate leading CSRC bytes when
// CSRCCount > 0.
type Packet struct {
	Header
	Payload []byte
}

// Unmarshal parses buf into a Packet. It fails with ErrMalformedPacket
// when buf is shorter than HeaderSize; otherwise it is total, and
// preserves every bit of the header verbatim (including a Version other
// than 2, and any CSRCCount without validating CSRC words actually
// follow) so that Marshal(Unmarshal(buf)) == buf.
func Unmarshal(buf []byte) (Packet, error) {
	if len(buf) < HeaderSize {
		return Packet{}, ErrMalformedPacket
	}

	b0 := buf[0]
	b1 := buf[1]

	h := Header{
		Version:     (b0 >> 6) & 0x3,
		Padding:     (b0>>5)&0x1 != 0,
		Ext:         (b0>>4)&0x1 != 0,
		CSRCCount:   b0 & 0xF,
		Marker:      (b1>>7)&0x1 != 0,
		PayloadType: b1 & 0x7F,
		Sequence:    binary.BigEndian.Uint16(buf[2:4]),
		Timestamp:   binary.BigEndian.Uint32(buf[4:8]),
		SSRC:        binary.BigEndian.Uint32(buf[8:12]),
	}

	payload := make([]byte, len(buf)-HeaderSize)
	copy(payload, buf[HeaderSize:])

	return Packet{Header: h, Payload: payload}, nil
}

// Marshal packs p back onto the wire. Each sub-field is masked to its bit
// width before shifting, so a Header built by hand with out-of-range
// values does not corrupt neighbouring fields.
func Marshal(p Packet) []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	MarshalTo(p, buf)
	return buf
}

// MarshalTo packs p into buf, which must be at least HeaderSize+len(p.Payload)
// bytes. It returns the number of bytes written.
func MarshalTo(p Packet, buf []byte) int {
	var b0, b1 byte
	b0 = (p.Version & 0x3) << 6
	if p.Padding {
		b0 |= 1 << 5
	}
	if p.Ext {
		b0 |= 1 << 4
	}
	b0 |= p.CSRCCount & 0xF

	if p.Marker {
		b1 = 1 << 7
	}
	b1 |= p.PayloadType & 0x7F

	buf[0] = b0
	buf[1] = b1
	binary.BigEndian.PutUint16(buf[2:4], p.Sequence)
	binary.BigEndian.PutUint32(buf[4:8], p.Timestamp)
	binary.BigEndian.PutUint32(buf[8:12], p.SSRC)
	n := copy(buf[HeaderSize:], p.Payload)
	return HeaderSize + n
}
