package transport

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// PacketType classifies a decoded frame
type PacketType int

const (
	PacketNoop PacketType = iota
	PacketEvent
	PacketOpen
	PacketConnect
	PacketDisconnect
	PacketPing
	PacketPong
)

// Packet is a decoded inbound frame.
type Packet struct {
	Type  PacketType
	Event string
	Data  json.RawMessage
}

// Codec converts between socket frames and events.
type Codec interface {
	Name() string
	// URL turns the configured server URL into the websocket URL to dial.
	URL(server string) (string, error)
	EncodeEvent(event string, data any) ([]byte, error)
	Decode(frame []byte) (Packet, error)
	// Reply returns the frame to answer a control packet with, or nil.
	Reply(p Packet) []byte
	// AwaitsConnect is true when the server must acknowledge the session
	// before events may be sent.
	AwaitsConnect() bool
}

const (
	CodecSocketIO = "socketio"
	CodecEnvelope = "envelope"
)

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecSocketIO, "":
		return SocketIOCodec{}, nil
	case CodecEnvelope:
		return EnvelopeCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown socket codec: %s", name)
	}
}

// websocketURL parses server and switches http(s) schemes to ws(s).
func websocketURL(server string) (*url.URL, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported server url scheme: %q", u.Scheme)
	}
	return u, nil
}
