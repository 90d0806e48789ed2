package transport

import "encoding/json"

// Socket events exchanged with the game server.
const (
	EventJoin      = "JOIN"       // client -> server, JSON string of the signed join payload
	EventStartGame = "START_GAME" // server -> client, opaque
	EventRoomInfo  = "ROOM_INFO"  // server -> client, {playerId, roomId, startTime, players}
	EventRoomReset = "ROOM_RESET" // server -> client, room left or closed
)

// Handler receives the data of an inbound event.
type Handler func(data json.RawMessage)
