package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketIOURL(t *testing.T) {
	u, err := SocketIOCodec{}.URL("https://game.playtime.club")
	require.NoError(t, err)
	assert.Equal(t, "wss://game.playtime.club/socket.io/?EIO=4&transport=websocket", u)

	u, err = SocketIOCodec{}.URL("http://localhost:3001/custom/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3001/custom/?EIO=4&transport=websocket", u)

	_, err = SocketIOCodec{}.URL("ftp://nope")
	assert.Error(t, err)
}

func TestSocketIOEncodeEvent(t *testing.T) {
	frame, err := SocketIOCodec{}.EncodeEvent(EventJoin, `{"network":"tez"}`)
	require.NoError(t, err)
	assert.Equal(t, `42["JOIN","{\"network\":\"tez\"}"]`, string(frame))
}

func TestSocketIODecode(t *testing.T) {
	codec := SocketIOCodec{}

	tests := []struct {
		name  string
		frame string
		want  Packet
	}{
		{"open", `0{"sid":"a"}`, Packet{Type: PacketOpen, Data: json.RawMessage(`{"sid":"a"}`)}},
		{"ping", `2`, Packet{Type: PacketPing, Data: json.RawMessage{}}},
		{"connect", `40{"sid":"b"}`, Packet{Type: PacketConnect, Data: json.RawMessage(`{"sid":"b"}`)}},
		{"disconnect", `41`, Packet{Type: PacketDisconnect}},
		{"event", `42["START_GAME","go"]`, Packet{Type: PacketEvent, Event: "START_GAME", Data: json.RawMessage(`"go"`)}},
		{"event without data", `42["ROOM_RESET"]`, Packet{Type: PacketEvent, Event: "ROOM_RESET"}},
		{"event with ack id", `4212["ROOM_INFO",{"roomId":"7"}]`, Packet{Type: PacketEvent, Event: "ROOM_INFO", Data: json.RawMessage(`{"roomId":"7"}`)}},
		{"namespaced event", `42/play,["START_GAME",1]`, Packet{Type: PacketEvent, Event: "START_GAME", Data: json.RawMessage(`1`)}},
		{"noop", `6`, Packet{Type: PacketNoop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Event, got.Event)
			assert.Equal(t, string(tt.want.Data), string(got.Data))
		})
	}
}

func TestSocketIODecodeErrors(t *testing.T) {
	codec := SocketIOCodec{}
	for _, frame := range []string{"", "9", "4", "42[]", "42{", "45[]"} {
		_, err := codec.Decode([]byte(frame))
		assert.Error(t, err, frame)
	}
}

func TestSocketIOReply(t *testing.T) {
	codec := SocketIOCodec{}
	assert.Equal(t, "40", string(codec.Reply(Packet{Type: PacketOpen})))
	assert.Equal(t, "3", string(codec.Reply(Packet{Type: PacketPing})))
	assert.Equal(t, "3probe", string(codec.Reply(Packet{Type: PacketPing, Data: []byte("probe")})))
	assert.Nil(t, codec.Reply(Packet{Type: PacketEvent}))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	codec := EnvelopeCodec{}

	frame, err := codec.EncodeEvent(EventJoin, "payload")
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"JOIN","data":"payload"}`, string(frame))

	p, err := codec.Decode([]byte(`{"event":"ROOM_INFO","data":{"roomId":"7"}}`))
	require.NoError(t, err)
	assert.Equal(t, PacketEvent, p.Type)
	assert.Equal(t, EventRoomInfo, p.Event)
	assert.JSONEq(t, `{"roomId":"7"}`, string(p.Data))

	_, err = codec.Decode([]byte(`{"data":1}`))
	assert.Error(t, err)
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecSocketIO, c.Name())

	c, err = NewCodec(CodecEnvelope)
	require.NoError(t, err)
	assert.Equal(t, CodecEnvelope, c.Name())

	_, err = NewCodec("grpc")
	assert.Error(t, err)
}
