// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package source

import (
	"fmt"
	"io"

	"github.com/aiortp/aiortp/audio"
	"github.com/go-audio/riff"
)

// PayloadTypePCMU is the RTP payload type AudioFile and Tone emit (µ-law,
// 8 kHz, mono).
const PayloadTypePCMU uint8 = 0

// AudioFile plays a signed 16-bit PCM WAV file, µ-law-encoded into a
// byte buffer once at construction. Each Next() slices off timeframe
// bytes (e.g. 160 for 20 ms at 8 kHz); the source exhausts once that
// buffer is empty.
type AudioFile struct {
	*frameSource
}

// NewAudioFile reads a WAV file's PCM data via r, µ-law-encodes it, and
// returns a Source that plays it out in timeframe-byte chunks.
// Source-internal failures (a non-16-bit WAV, bad headers) surface here,
// synchronously, before any tick runs rather than mid-stream.
func NewAudioFile(r io.Reader, timeframe int) (*AudioFile, error) {
	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return nil, fmt.Errorf("source: audio file headers: %w", err)
	}

	var data *riff.Chunk
	for data == nil {
		chunk, err := parser.NextChunk()
		if err != nil {
			return nil, fmt.Errorf("source: audio file: %w", err)
		}

		switch chunk.ID {
		case riff.FmtID:
			if err := chunk.DecodeWavHeader(parser); err != nil {
				return nil, fmt.Errorf("source: audio file: decode fmt chunk: %w", err)
			}
		case riff.DataFormatID:
			data = chunk
		default:
			chunk.Drain()
		}
	}

	if parser.BitsPerSample != 16 {
		return nil, fmt.Errorf("source: audio file: unsupported bit depth %d, want 16", parser.BitsPerSample)
	}

	pcm, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("source: audio file: read pcm: %w", err)
	}

	media := audio.EncodeUlaw(pcm)
	return &AudioFile{frameSource: newFrameSource(media, timeframe, PayloadTypePCMU)}, nil
}
