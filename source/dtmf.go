// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package source

import (
	"fmt"

	"github.com/aiortp/aiortp/rtp"
)

// PayloadTypeTelephoneEvent is the RTP payload type DTMF emits (RFC 2833
// telephone-event), matching the negotiated type in sdp.Describe.
const PayloadTypeTelephoneEvent uint8 = 101

// DefaultToneLength is the duration, in milliseconds, of one RFC 2833
// DTMF event when the caller does not specify one.
const DefaultToneLength = 200

// dtmfVolume is the constant volume (in -dBm0, per RFC 2833) this
// generator reports; the original implementation never varies it.
const dtmfVolume uint8 = 10

// DTMF emits one RFC 2833 event payload per tick for each digit in a
// string. Per digit it produces ceil(toneLength/timeframe) packets: the
// first carries Marker=true and cur_length=0, the last three (by
// duration) carry EndOfEvent=true per RFC 2833's recommendation to
// repeat the end event. The RTP timestamp only advances at a digit
// boundary, by toneLengthMS*sampleRate/1000 — the whole digit shares one
// timestamp, since RFC 2833 ties the timestamp to the start of the
// tone, not to each repeated packet.
type DTMF struct {
	lifecycle

	digits          []uint8 // already-translated event ids
	toneLengthMS    int
	timeframeMS     int
	sampleRate      int
	packetsPerDigit int

	digitIdx    int
	pktIdx      int
	payloadType uint8
	ssrc        uint32
	seq         uint16
	timestamp   uint32
}

// NewDTMF validates digits against the DTMF map and returns a Source
// emitting one RFC 2833 event stream per digit. An unsupported digit is
// a construction failure, surfaced synchronously before any tick runs
// rather than discovered mid-stream.
func NewDTMF(digits string, toneLengthMS int, timeframeMS int, sampleRate int) (*DTMF, error) {
	if toneLengthMS <= 0 {
		toneLengthMS = DefaultToneLength
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if timeframeMS <= 0 {
		return nil, fmt.Errorf("source: dtmf: timeframe must be positive")
	}

	events := make([]uint8, 0, len(digits))
	for _, r := range digits {
		id, ok := rtp.DTMFEventID(r)
		if !ok {
			return nil, fmt.Errorf("source: dtmf: unsupported digit %q", r)
		}
		events = append(events, id)
	}

	seq, ssrc := bootstrap()
	packetsPerDigit := (toneLengthMS + timeframeMS - 1) / timeframeMS

	return &DTMF{
		lifecycle:       newLifecycle(),
		digits:          events,
		toneLengthMS:    toneLengthMS,
		timeframeMS:     timeframeMS,
		sampleRate:      sampleRate,
		packetsPerDigit: packetsPerDigit,
		payloadType:     PayloadTypeTelephoneEvent,
		ssrc:            ssrc,
		seq:             seq,
	}, nil
}

// Next produces the next RFC 2833 event packet, or ErrExhausted once
// every digit has emitted its full packet run.
func (d *DTMF) Next() (rtp.Packet, error) {
	if d.State() != StateActive {
		return rtp.Packet{}, ErrExhausted
	}

	if d.digitIdx >= len(d.digits) {
		d.finish(StateExhausted)
		return rtp.Packet{}, ErrExhausted
	}

	curLength := d.pktIdx * d.timeframeMS
	ev := rtp.Event{
		EventID:    d.digits[d.digitIdx],
		EndOfEvent: curLength+60 >= d.toneLengthMS,
		Volume:     dtmfVolume,
		Duration:   uint16(curLength * 8),
	}

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:     2,
			Marker:      d.pktIdx == 0,
			PayloadType: d.payloadType,
			Sequence:    d.seq,
			Timestamp:   d.timestamp,
			SSRC:        d.ssrc,
		},
		Payload: rtp.MarshalEvent(ev),
	}
	d.seq++

	d.pktIdx++
	if d.pktIdx >= d.packetsPerDigit {
		d.pktIdx = 0
		d.digitIdx++
		d.timestamp += uint32(d.toneLengthMS * d.sampleRate / 1000)
	}

	return pkt, nil
}
