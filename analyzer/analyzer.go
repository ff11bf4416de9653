// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package analyzer turns a finite, arrival-ordered list of received RTP
// packets into a post-hoc quality report: de-duplicated packets, loss
// and duplicate fractions, RFC 3550 section 6.4.1 jitter, codec
// inventory and audio RMS level.
package analyzer

import (
	"math"
	"strconv"
	"time"

	"github.com/aiortp/aiortp/rtp"
	"github.com/aiortp/aiortp/transport"
)

// seqSpace is the size of the 16-bit wrapping sequence space.
const seqSpace = 1 << 16

// lookaheadWindow is how many positions past a gap the analyzer peeks
// before declaring a sequence number lost rather than simply reordered.
const lookaheadWindow = 10

// ReceivedPacket pairs a parsed RTP packet with its wall-clock arrival
// time, the analyzer's unit of input.
type ReceivedPacket struct {
	Arrival time.Time
	RTP     rtp.Packet
}

// FromTransport adapts the transport package's receive-path packets
// into the analyzer's input type.
func FromTransport(pkts []transport.Packet) []ReceivedPacket {
	out := make([]ReceivedPacket, len(pkts))
	for i, p := range pkts {
		out[i] = ReceivedPacket{Arrival: p.Arrival, RTP: p.RTP}
	}
	return out
}

// StreamStats is the immutable post-hoc view over a received packet
// sequence.
type StreamStats struct {
	Packets    []ReceivedPacket // de-duplicated, in arrival order
	Loss       float64          // lost / n
	Duplicates float64          // duplicates / n
	Jitter     []float64        // RFC 3550 section 6.4.1 J(i), J(0)=0
	Duration   time.Duration
	Codecs     []string
	Audio      []int8 // payloads reinterpreted as signed 8-bit samples
	RMSdB      float64
}

// Analyze computes a StreamStats over packets (given in arrival order).
// sampleRate is the RTP clock rate used for the jitter calculation (8000
// for PCMU/telephone-event; pass the codec's actual rate otherwise).
func Analyze(packets []ReceivedPacket, sampleRate int) StreamStats {
	if len(packets) == 0 {
		return StreamStats{}
	}
	if sampleRate <= 0 {
		sampleRate = 8000
	}

	dedup, lost, dup := dedupe(packets)

	n := float64(len(packets))
	stats := StreamStats{
		Packets:    dedup,
		Loss:       float64(lost) / n,
		Duplicates: float64(dup) / n,
		Jitter:     jitter(dedup, sampleRate),
		Duration:   dedup[len(dedup)-1].Arrival.Sub(dedup[0].Arrival),
		Codecs:     codecs(dedup),
	}
	stats.Audio, stats.RMSdB = audioLevel(dedup)
	return stats
}

// dedupe is a single-pass loss/duplicate classifier: a sequence-aware
// walk over the wrapping 16-bit space with a 10-packet lookahead before
// any gap is counted as genuinely lost rather than just reordered.
func dedupe(packets []ReceivedPacket) (accepted []ReceivedPacket, lostCount, dupCount int) {
	first := int(packets[0].RTP.Sequence)
	expected := first

	for p, pkt := range packets {
		seq := int(pkt.RTP.Sequence)

		switch {
		case seq == expected:
			accepted = append(accepted, pkt)
			expected = (expected + 1) % seqSpace

		case seq == (expected-1+seqSpace)%seqSpace:
			dupCount++

		case seq > expected:
			lostCount += countLost(packets, p, expected, seq)
			accepted = append(accepted, pkt)
			expected = (seq + 1) % seqSpace

		case seq <= first:
			lostCount += countLost(packets, p, expected, seq)
			accepted = append(accepted, pkt)
			expected = (seq + 1) % seqSpace

		default:
			// A backward jump that is neither the immediately-preceding
			// sequence number nor a full wrap past the stream's start:
			// treat it the same as an immediate repeat.
			dupCount++
		}
	}

	return accepted, lostCount, dupCount
}

// countLost walks the missing sequence numbers in [expected, seq)
// (wrapping through 2^16 when seq <= expected), and returns how many of
// them do NOT show up within the next lookaheadWindow packets after
// position p — those not found are genuinely lost; those found simply
// arrived out of order.
func countLost(packets []ReceivedPacket, p int, expected, seq int) int {
	look := make(map[int]bool, lookaheadWindow)
	for i := p + 1; i <= p+lookaheadWindow && i < len(packets); i++ {
		look[int(packets[i].RTP.Sequence)] = true
	}

	lost := 0
	for m := expected; m != seq; m = (m + 1) % seqSpace {
		if !look[m] {
			lost++
		}
	}
	return lost
}

// jitter computes the RFC 3550 section 6.4.1 smoothed jitter estimate
// over the de-duplicated, arrival-ordered packet list.
func jitter(packets []ReceivedPacket, sampleRate int) []float64 {
	j := make([]float64, len(packets))
	for i := 1; i < len(packets); i++ {
		arrivalDeltaMS := packets[i].Arrival.Sub(packets[i-1].Arrival).Seconds() * 1000
		tsDeltaMS := float64(packets[i].RTP.Timestamp-packets[i-1].RTP.Timestamp) / float64(sampleRate) * 1000

		d := math.Abs(arrivalDeltaMS - tsDeltaMS)
		j[i] = j[i-1] + (d-j[i-1])/16
	}
	return j
}

// rtpPayloads is the subset of the IANA static RTP payload type table
// this engine cares about; unknown types are stringified instead.
var rtpPayloads = map[uint8]string{
	0:  "PCMU",
	3:  "GSM",
	4:  "G723",
	8:  "PCMA",
	9:  "G722",
	10: "L16",
	11: "L16",
	13: "CN",
	18: "G729",
}

func codecName(pt uint8) string {
	if name, ok := rtpPayloads[pt]; ok {
		return name
	}
	return strconv.Itoa(int(pt))
}

func codecs(packets []ReceivedPacket) []string {
	seen := map[string]bool{}
	var out []string
	for _, pkt := range packets {
		name := codecName(pkt.RTP.PayloadType)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// audioLevel concatenates every packet's payload, reinterpreted as
// signed 8-bit samples, and computes its RMS level in dB:
// 20*log10(||audio||2 / sqrt(len(audio))), i.e. 10*log10(mean square).
func audioLevel(packets []ReceivedPacket) ([]int8, float64) {
	var audio []int8
	for _, pkt := range packets {
		for _, b := range pkt.RTP.Payload {
			audio = append(audio, int8(b))
		}
	}

	if len(audio) == 0 {
		return audio, 0
	}

	var sumSquares float64
	for _, s := range audio {
		sumSquares += float64(s) * float64(s)
	}
	meanSquare := sumSquares / float64(len(audio))
	return audio, 10 * math.Log10(meanSquare)
}
