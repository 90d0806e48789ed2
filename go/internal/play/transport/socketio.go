package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Engine.IO v4 packet types
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO v5 packet types, carried inside engine messages
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketAck          = '3'
	socketConnectError = '4'
)

var errEmptyFrame = errors.New("empty frame")

// SocketIOCodec speaks the socket.io protocol (Engine.IO v4) over a plain
// websocket transport, default namespace only.
type SocketIOCodec struct{}

func (SocketIOCodec) Name() string { return CodecSocketIO }

func (SocketIOCodec) URL(server string) (string, error) {
	u, err := websocketURL(server)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (SocketIOCodec) EncodeEvent(event string, data any) ([]byte, error) {
	body, err := json.Marshal([]any{event, data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", event, err)
	}
	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, engineMessage, socketEvent)
	return append(frame, body...), nil
}

func (SocketIOCodec) Decode(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return Packet{}, errEmptyFrame
	}
	rest := frame[1:]
	switch frame[0] {
	case engineOpen:
		return Packet{Type: PacketOpen, Data: rest}, nil
	case engineClose:
		return Packet{Type: PacketDisconnect}, nil
	case enginePing:
		return Packet{Type: PacketPing, Data: rest}, nil
	case enginePong:
		return Packet{Type: PacketPong, Data: rest}, nil
	case engineNoop:
		return Packet{Type: PacketNoop}, nil
	case engineMessage:
		return decodeSocketPacket(rest)
	default:
		return Packet{}, fmt.Errorf("unknown engine packet type %q", frame[0])
	}
}

func decodeSocketPacket(b []byte) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, errEmptyFrame
	}
	body := stripNamespace(b[1:])
	switch b[0] {
	case socketConnect:
		return Packet{Type: PacketConnect, Data: body}, nil
	case socketDisconnect:
		return Packet{Type: PacketDisconnect}, nil
	case socketConnectError:
		return Packet{Type: PacketDisconnect, Data: body}, nil
	case socketAck:
		return Packet{Type: PacketNoop}, nil
	case socketEvent:
		return decodeEvent(skipAckID(body))
	default:
		return Packet{}, fmt.Errorf("unsupported socket packet type %q", b[0])
	}
}

func decodeEvent(body []byte) (Packet, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return Packet{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if len(args) == 0 {
		return Packet{}, errors.New("event without name")
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return Packet{}, fmt.Errorf("unmarshal event name: %w", err)
	}
	p := Packet{Type: PacketEvent, Event: name}
	if len(args) > 1 {
		p.Data = args[1]
	}
	return p, nil
}

// stripNamespace drops a leading "/nsp," if present.
func stripNamespace(b []byte) []byte {
	if len(b) == 0 || b[0] != '/' {
		return b
	}
	if i := bytes.IndexByte(b, ','); i >= 0 {
		return b[i+1:]
	}
	return nil
}

func skipAckID(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	return b[i:]
}

func (SocketIOCodec) Reply(p Packet) []byte {
	switch p.Type {
	case PacketOpen:
		return []byte{engineMessage, socketConnect}
	case PacketPing:
		return append([]byte{enginePong}, p.Data...)
	default:
		return nil
	}
}

func (SocketIOCodec) AwaitsConnect() bool { return true }
