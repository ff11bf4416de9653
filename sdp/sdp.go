// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

// Package sdp formats and parses the minimal SDP this engine needs to
// announce and learn a remote RTP endpoint. It is not a general SDP
// library: ingestion is tolerant and only looks at the m=audio and
// c=IN IP4 lines, everything else is ignored.
package sdp

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

var bufReader = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// SessionDescription is a parsed SDP: each line type maps to the ordered
// list of values it appeared with.
type SessionDescription map[string][]string

func (sd SessionDescription) Values(key string) []string {
	return sd[key]
}

func (sd SessionDescription) Value(key string) string {
	values := sd[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Unmarshal is a non-validating parser: it only requires type=value
// lines, tolerant of either LF or CRLF termination.
func Unmarshal(data []byte, sdptr *SessionDescription) error {
	reader := bufReader.Get().(*bytes.Buffer)
	defer bufReader.Put(reader)
	reader.Reset()
	reader.Write(data)

	sd := *sdptr
	for {
		line, err := nextLine(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if len(line) < 2 {
			continue
		}

		ind := strings.Index(line, "=")
		if ind < 1 {
			continue
		}
		key := line[:ind]
		value := line[ind+1:]

		sd[key] = append(sd[key], value)
	}
}

func nextLine(reader *bytes.Buffer) (line string, err error) {
	line, err = reader.ReadString('\n')
	if err != nil {
		return line, err
	}

	lenline := len(line)
	if lenline >= 2 && line[lenline-2] == '\r' {
		return line[:lenline-2], nil
	}
	return line[:lenline-1], nil
}

// RemoteEndpoint is the (host, port) pair this engine needs out of a
// peer's SDP: the m=audio port and the c=IN IP4 connection address.
type RemoteEndpoint struct {
	Host string
	Port int
}

// ParseRemoteEndpoint extracts the remote audio (host, port) out of a
// peer SDP. It fails with ErrNegotiationFailed if either the m=audio or
// the c=IN IP4 line is missing or malformed.
func ParseRemoteEndpoint(peerSDP []byte) (RemoteEndpoint, error) {
	sd := SessionDescription{}
	if err := Unmarshal(peerSDP, &sd); err != nil {
		return RemoteEndpoint{}, fmt.Errorf("%w: %s", ErrNegotiationFailed, err)
	}

	port, err := mediaAudioPort(sd)
	if err != nil {
		return RemoteEndpoint{}, err
	}

	host, err := connectionHost(sd)
	if err != nil {
		return RemoteEndpoint{}, err
	}

	return RemoteEndpoint{Host: host, Port: port}, nil
}

// m=<media> <port> <proto> <fmt> ...
// https://tools.ietf.org/html/rfc4566#section-5.14
func mediaAudioPort(sd SessionDescription) (int, error) {
	for _, v := range sd.Values("m") {
		fields := strings.Fields(v)
		if len(fields) < 4 || fields[0] != "audio" {
			continue
		}
		port, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("%w: bad m=audio port %q", ErrNegotiationFailed, fields[1])
		}
		return port, nil
	}
	return 0, fmt.Errorf("%w: no m=audio line", ErrNegotiationFailed)
}

// c=<nettype> <addrtype> <connection-address>
// https://tools.ietf.org/html/rfc4566#section-5.7
func connectionHost(sd SessionDescription) (string, error) {
	v := sd.Value("c")
	if v == "" {
		return "", fmt.Errorf("%w: no c= line", ErrNegotiationFailed)
	}

	fields := strings.Fields(v)
	if len(fields) < 3 || fields[0] != "IN" || fields[1] != "IP4" {
		return "", fmt.Errorf("%w: malformed c= line %q", ErrNegotiationFailed, v)
	}

	ip := net.ParseIP(fields[2]).To4()
	if ip == nil {
		return "", fmt.Errorf("%w: bad c= address %q", ErrNegotiationFailed, fields[2])
	}
	return ip.String(), nil
}
