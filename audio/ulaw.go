// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

// Package audio wraps the one PCM-adjacent codec a Source needs: µ-law
// encoding of signed 16-bit PCM. WAV container parsing lives directly
// in the source package, against go-audio/riff, since AudioFile is its
// only caller.
package audio

import "github.com/zaf/g711"

// EncodeUlaw encodes a buffer of signed 16-bit little-endian PCM samples
// into 8-bit µ-law. len(lpcm) must be even.
func EncodeUlaw(lpcm []byte) []byte {
	return g711.EncodeUlaw(lpcm)
}
