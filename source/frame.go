// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package source

import (
	"github.com/aiortp/aiortp/rtp"
)

// frameSource is the bookkeeping AudioFile and Tone share: both are "a
// pre-encoded µ-law buffer, sliced into fixed-size RTP payloads". They
// differ only in how the buffer was produced (file decode vs synthesis).
type frameSource struct {
	lifecycle

	media     []byte
	timeframe int

	payloadType uint8
	ssrc        uint32
	seq         uint16
	timestamp   uint32
}

func newFrameSource(media []byte, timeframe int, payloadType uint8) *frameSource {
	seq, ssrc := bootstrap()
	return &frameSource{
		lifecycle:   newLifecycle(),
		media:       media,
		timeframe:   timeframe,
		payloadType: payloadType,
		ssrc:        ssrc,
		seq:         seq,
		timestamp:   0,
	}
}

// Next slices the next timeframe bytes off the remaining media buffer.
// Timestamp is monotone non-decreasing, sequence strictly monotone (mod
// 2^16); both payload_type and ssrc are constant for the source's
// lifetime.
func (f *frameSource) Next() (rtp.Packet, error) {
	if f.State() != StateActive {
		return rtp.Packet{}, ErrExhausted
	}

	n := f.timeframe
	if n > len(f.media) {
		n = len(f.media)
	}
	chunk := f.media[:n]
	f.media = f.media[n:]

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:     2,
			Marker:      false,
			PayloadType: f.payloadType,
			Sequence:    f.seq,
			Timestamp:   f.timestamp,
			SSRC:        f.ssrc,
		},
		Payload: chunk,
	}

	f.seq++
	f.timestamp += uint32(f.timeframe)

	if len(f.media) == 0 {
		f.finish(StateExhausted)
	}

	return pkt, nil
}
