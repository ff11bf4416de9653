// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package rtp

import "errors"

// ErrMalformedPacket is returned by Unmarshal when a datagram is shorter
// than the fixed 12 byte RTP header (or 4 bytes for an event payload).
var ErrMalformedPacket = errors.New("rtp: malformed packet")
