// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/aiortp/aiortp/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqPackets(start time.Time, seqs ...uint16) []ReceivedPacket {
	out := make([]ReceivedPacket, len(seqs))
	for i, s := range seqs {
		out[i] = ReceivedPacket{
			Arrival: start.Add(time.Duration(i) * 20 * time.Millisecond),
			RTP:     rtp.Packet{Header: rtp.Header{Version: 2, Sequence: s, Timestamp: uint32(i) * 160}},
		}
	}
	return out
}

// Scenario 1: contiguous sequence, no loss, no duplicates.
func TestJitterBufferInOrder(t *testing.T) {
	seqs := make([]uint16, 20)
	for i := range seqs {
		seqs[i] = uint16(i + 1)
	}
	stats := Analyze(seqPackets(time.Now(), seqs...), 8000)

	assert.Len(t, stats.Packets, 20)
	assert.Zero(t, stats.Loss)
	assert.Zero(t, stats.Duplicates)
}

// Scenario 2: the same sequence number repeated 20 times.
func TestJitterBufferAllDuplicates(t *testing.T) {
	seqs := make([]uint16, 20)
	for i := range seqs {
		seqs[i] = 42
	}
	stats := Analyze(seqPackets(time.Now(), seqs...), 8000)

	assert.Len(t, stats.Packets, 1)
	assert.Zero(t, stats.Loss)
	assert.InDelta(t, 19.0/20.0, stats.Duplicates, 1e-9)
}

// Scenario 3: every other sequence number missing, no duplicates.
func TestJitterBufferAlternatingLoss(t *testing.T) {
	seqs := []uint16{1, 3, 5, 7, 9, 11, 13, 15, 17, 19}
	stats := Analyze(seqPackets(time.Now(), seqs...), 8000)

	assert.Len(t, stats.Packets, 10)
	assert.InDelta(t, 9.0/10.0, stats.Loss, 1e-9)
	assert.Zero(t, stats.Duplicates)
}

// Scenario 4: every odd sequence number repeated, interleaved with loss.
func TestJitterBufferLossAndDuplicatesInterleaved(t *testing.T) {
	seqs := []uint16{}
	for _, s := range []uint16{1, 3, 5, 7, 9, 11, 13, 15, 17, 19} {
		seqs = append(seqs, s, s)
	}
	stats := Analyze(seqPackets(time.Now(), seqs...), 8000)

	assert.Len(t, stats.Packets, 10)
	assert.InDelta(t, 9.0/20.0, stats.Loss, 1e-9)
	assert.InDelta(t, 10.0/20.0, stats.Duplicates, 1e-9)
}

// Scenario 5: sequence number wraps through 2^16.
func TestJitterBufferSequenceWrap(t *testing.T) {
	stats := Analyze(seqPackets(time.Now(), 65534, 65535, 0, 1), 8000)

	assert.Len(t, stats.Packets, 4)
	assert.Zero(t, stats.Loss)
	assert.Zero(t, stats.Duplicates)
}

// TestJitterZeroForConstantSpacing checks the RFC 3550 jitter formula's
// baseline: constant arrival spacing equal to ptime with timestamps
// advancing by ptime*sample_rate/1000 yields D(i)=0 and hence J(i)=0
// for all i.
func TestJitterZeroForConstantSpacing(t *testing.T) {
	const ptime = 20 * time.Millisecond
	const sampleRate = 8000

	start := time.Now()
	packets := make([]ReceivedPacket, 10)
	for i := range packets {
		packets[i] = ReceivedPacket{
			Arrival: start.Add(time.Duration(i) * ptime),
			RTP: rtp.Packet{Header: rtp.Header{
				Version:   2,
				Sequence:  uint16(i + 1),
				Timestamp: uint32(i) * 160, // 20ms * 8000/1000
			}},
		}
	}

	stats := Analyze(packets, sampleRate)
	require.Len(t, stats.Jitter, 10)
	for i, j := range stats.Jitter {
		assert.InDelta(t, 0, j, 1e-9, "J(%d)", i)
	}
}

func TestCodecsAndAudioLevel(t *testing.T) {
	start := time.Now()
	packets := []ReceivedPacket{
		{Arrival: start, RTP: rtp.Packet{Header: rtp.Header{Sequence: 1, PayloadType: 0}, Payload: []byte{0, 0, 0, 0}}},
		{Arrival: start.Add(20 * time.Millisecond), RTP: rtp.Packet{Header: rtp.Header{Sequence: 2, PayloadType: 13}, Payload: []byte{0, 0}}},
	}

	stats := Analyze(packets, 8000)
	assert.Equal(t, []string{"PCMU", "CN"}, stats.Codecs)
	assert.Len(t, stats.Audio, 6)
	assert.True(t, math.IsInf(stats.RMSdB, -1), "all-zero payload is true silence: -Inf dB")
}

func TestCodecNameUnknownPayloadType(t *testing.T) {
	assert.Equal(t, "96", codecName(96))
	assert.Equal(t, "PCMU", codecName(0))
}
