package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Engine.IO v4 packet types, sent as the first byte of each websocket frame.
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioUpgrade byte = '5'
	eioNoop    byte = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	sioConnect      byte = '0'
	sioDisconnect   byte = '1'
	sioEvent        byte = '2'
	sioAck          byte = '3'
	sioConnectError byte = '4'
)

var errEmptyPacket = errors.New("empty packet")

// handshake is the payload of the Engine.IO open packet.
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// packet is a decoded Socket.IO packet.
type packet struct {
	Type      byte
	Namespace string
	AckID     int
	Event     string
	Args      []json.RawMessage
	Data      json.RawMessage
}

func decodeHandshake(frame []byte) (handshake, error) {
	var hs handshake
	if len(frame) == 0 || frame[0] != eioOpen {
		return hs, fmt.Errorf("expected open packet, got %q", truncate(frame))
	}
	if err := json.Unmarshal(frame[1:], &hs); err != nil {
		return hs, fmt.Errorf("decode handshake: %w", err)
	}
	return hs, nil
}

// encodeConnect builds the Socket.IO connect packet for the default namespace.
func encodeConnect() []byte {
	return []byte{eioMessage, sioConnect}
}

// encodeEvent builds `42["name",arg...]`.
func encodeEvent(name string, args ...any) ([]byte, error) {
	items := make([]any, 0, len(args)+1)
	items = append(items, name)
	items = append(items, args...)
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", name, err)
	}
	out := make([]byte, 0, len(payload)+2)
	out = append(out, eioMessage, sioEvent)
	return append(out, payload...), nil
}

// decodePacket parses the Socket.IO portion of an Engine.IO message frame
// (the leading '4' already stripped).
func decodePacket(data []byte) (packet, error) {
	var p packet
	if len(data) == 0 {
		return p, errEmptyPacket
	}
	p.Type = data[0]
	p.AckID = -1
	rest := data[1:]

	if len(rest) > 0 && rest[0] == '/' {
		end := bytes.IndexByte(rest, ',')
		if end < 0 {
			p.Namespace = string(rest)
			rest = nil
		} else {
			p.Namespace = string(rest[:end])
			rest = rest[end+1:]
		}
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(string(rest[:digits]))
		if err != nil {
			return p, fmt.Errorf("decode ack id: %w", err)
		}
		p.AckID = id
		rest = rest[digits:]
	}

	if len(rest) == 0 {
		return p, nil
	}
	p.Data = json.RawMessage(rest)

	if p.Type == sioEvent || p.Type == sioAck {
		if err := json.Unmarshal(rest, &p.Args); err != nil {
			return p, fmt.Errorf("decode event payload: %w", err)
		}
		if p.Type == sioEvent {
			if len(p.Args) == 0 {
				return p, fmt.Errorf("event packet without name")
			}
			if err := json.Unmarshal(p.Args[0], &p.Event); err != nil {
				return p, fmt.Errorf("decode event name: %w", err)
			}
			p.Args = p.Args[1:]
		}
	}
	return p, nil
}

// connectErrorMessage extracts the message of a connect_error packet.
func connectErrorMessage(p packet) string {
	var body struct {
		Message string `json:"message"`
	}
	if len(p.Data) > 0 && json.Unmarshal(p.Data, &body) == nil && body.Message != "" {
		return body.Message
	}
	if len(p.Data) > 0 {
		return string(p.Data)
	}
	return "connection refused"
}

func truncate(b []byte) string {
	const max = 64
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
