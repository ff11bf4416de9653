// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"fmt"
	"strings"
)

// The origin-id pair below is fixed rather than derived from wall-clock
// time (unlike a typical o= line) so that Describe is pure: same
// (host, port, ptime) in, same bytes out, every time. The values match
// the reference aiortp implementation this engine's SDP block is
// modelled on.
const (
	originUser    = "user1"
	originSessID  = 53655765
	originSessVer = 2353687637
)

// Describe renders the exact, CRLF-terminated SDP block this engine
// announces for an audio stream: PCMU (0), telephone-event (101) and CN
// (13) payload types, sendrecv, with the given ptime. It is deterministic
// given (host, port, ptime).
func Describe(host string, port int, ptime int) string {
	lines := []string{
		"v=0",
		fmt.Sprintf("o=%s %d %d IN IP4 %s", originUser, originSessID, originSessVer, host),
		"s=-",
		"t=0 0",
		"i=aiortp media stream",
		fmt.Sprintf("m=audio %d RTP/AVP 0 101 13", port),
		fmt.Sprintf("c=IN IP4 %s", host),
		"a=rtpmap:0 PCMU/8000/1",
		"a=rtpmap:101 telephone-event/8000",
		"a=fmtp:101 0-15",
		fmt.Sprintf("a=ptime:%d", ptime),
		"a=sendrecv",
		"",
	}
	return strings.Join(lines, "\r\n")
}
