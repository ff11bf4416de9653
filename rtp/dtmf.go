// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package rtp

// DTMF event mapping (RFC 4733 section 3.2). '⚡' is a 17th, non-standard
// digit some deployments use for a vendor flash/hook-flash event;
// nothing here special-cases it beyond the table.
var dtmfRuneToEvent = map[rune]uint8{
	'0': 0, '1': 1, '2': 2, '3': 3, '4': 4,
	'5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
	'*': 10, '#': 11,
	'A': 12, 'B': 13, 'C': 14, 'D': 15,
	'⚡': 16,
}

var dtmfEventToRune = func() map[uint8]rune {
	m := make(map[uint8]rune, len(dtmfRuneToEvent))
	for r, ev := range dtmfRuneToEvent {
		m[ev] = r
	}
	return m
}()

// DTMFEventID translates a DTMF digit to its RFC 2833 event id. ok is
// false for any rune outside the map.
func DTMFEventID(digit rune) (id uint8, ok bool) {
	id, ok = dtmfRuneToEvent[digit]
	return
}

// DTMFRune translates an RFC 2833 event id back to its DTMF digit. ok is
// false for any id outside the map.
func DTMFRune(id uint8) (digit rune, ok bool) {
	digit, ok = dtmfEventToRune[id]
	return
}
