// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import "errors"

// ErrNegotiationFailed is returned when a peer SDP is missing or carries
// a malformed m=audio or c=IN IP4 line.
var ErrNegotiationFailed = errors.New("sdp: negotiation failed")
