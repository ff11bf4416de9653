// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeDeterministic(t *testing.T) {
	want := "v=0\r\n" +
		"o=user1 53655765 2353687637 IN IP4 127.0.0.1\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"i=aiortp media stream\r\n" +
		"m=audio 16384 RTP/AVP 0 101 13\r\n" +
		"c=IN IP4 127.0.0.1\r\n" +
		"a=rtpmap:0 PCMU/8000/1\r\n" +
		"a=rtpmap:101 telephone-event/8000\r\n" +
		"a=fmtp:101 0-15\r\n" +
		"a=ptime:20\r\n" +
		"a=sendrecv\r\n"

	got := Describe("127.0.0.1", 16384, 20)
	assert.Equal(t, want, got)

	// Deterministic: calling twice with the same inputs must match.
	assert.Equal(t, got, Describe("127.0.0.1", 16384, 20))
}

func TestParseRemoteEndpoint(t *testing.T) {
	peer := Describe("192.0.2.10", 20000, 20)

	ep, err := ParseRemoteEndpoint([]byte(peer))
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ep.Host)
	assert.Equal(t, 20000, ep.Port)
}

func TestParseRemoteEndpointIgnoresOtherLines(t *testing.T) {
	peer := "v=0\r\n" +
		"o=- 1 1 IN IP4 0.0.0.0\r\n" +
		"s=-\r\n" +
		"b=AS:64\r\n" +
		"m=video 5000 RTP/AVP 99\r\n" +
		"m=audio 30000 RTP/AVP 0\r\n" +
		"c=IN IP4 203.0.113.5\r\n" +
		"a=sendrecv\r\n"

	ep, err := ParseRemoteEndpoint([]byte(peer))
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ep.Host)
	assert.Equal(t, 30000, ep.Port)
}

func TestParseRemoteEndpointMissingMedia(t *testing.T) {
	peer := "v=0\r\nc=IN IP4 127.0.0.1\r\n"
	_, err := ParseRemoteEndpoint([]byte(peer))
	require.ErrorIs(t, err, ErrNegotiationFailed)
}

func TestParseRemoteEndpointMissingConnection(t *testing.T) {
	peer := "v=0\r\nm=audio 1234 RTP/AVP 0\r\n"
	_, err := ParseRemoteEndpoint([]byte(peer))
	require.ErrorIs(t, err, ErrNegotiationFailed)
}
