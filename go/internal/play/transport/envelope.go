package transport

import (
	"encoding/json"
	"fmt"
)

// envelope is the frame format of the plain JSON codec.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EnvelopeCodec sends every event as {"event": ..., "data": ...}. The
// session counts as connected as soon as the websocket is open.
type EnvelopeCodec struct{}

func (EnvelopeCodec) Name() string { return CodecEnvelope }

func (EnvelopeCodec) URL(server string) (string, error) {
	u, err := websocketURL(server)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (EnvelopeCodec) EncodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", event, err)
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}

func (EnvelopeCodec) Decode(frame []byte) (Packet, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Packet{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return Packet{}, fmt.Errorf("envelope without event")
	}
	return Packet{Type: PacketEvent, Event: env.Event, Data: env.Data}, nil
}

func (EnvelopeCodec) Reply(Packet) []byte { return nil }

func (EnvelopeCodec) AwaitsConnect() bool { return false }
