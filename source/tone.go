// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package source

import (
	"encoding/binary"
	"math"

	"github.com/aiortp/aiortp/audio"
)

// DefaultSampleRate is the clock rate Tone synthesises at when the
// caller does not ask for a different one.
const DefaultSampleRate = 8000

// Tone synthesises amplitude*sin(2*pi*f*t) for the given duration,
// µ-law-encodes it once at construction, then behaves exactly like
// AudioFile: each Next() slices off timeframe bytes.
type Tone struct {
	*frameSource
}

// NewTone synthesises a sine wave at freqHz for duration seconds at
// sampleRate (0 defaults to DefaultSampleRate), µ-law-encodes it and
// returns a Source that plays it out in timeframe-byte chunks.
func NewTone(freqHz float64, amplitude float64, duration float64, sampleRate int, timeframe int) *Tone {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	n := int(duration * float64(sampleRate))
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		sample := int16(amplitude * math.Sin(2*math.Pi*freqHz*t))
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(sample))
	}

	media := audio.EncodeUlaw(pcm)
	return &Tone{frameSource: newFrameSource(media, timeframe, PayloadTypePCMU)}
}
