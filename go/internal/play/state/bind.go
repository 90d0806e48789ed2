package state

import (
	"encoding/json"
	"sync"

	"github.com/mcdev12/playtime/go/internal/play/transport"
	"github.com/rs/zerolog/log"
)

// Source is the inbound side of the socket transport.
type Source interface {
	Connected() bool
	On(event string, h transport.Handler) func()
	OnConnectionChange(fn func(connected bool)) func()
}

// Bind mirrors server pushes from src into w. The returned function detaches
// all listeners.
func Bind(w ServerWriter, src Source) func() {
	offs := []func(){
		src.OnConnectionChange(w.SetConnected),
		src.On(transport.EventRoomInfo, func(data json.RawMessage) {
			info, err := DecodeRoomInfo(data)
			if err != nil {
				log.Warn().Err(err).Msg("ignoring malformed room info")
				return
			}
			w.ApplyRoomInfo(info)
			log.Info().
				Interface("player_id", info.PlayerID).
				Interface("room_id", info.RoomID).
				Msg("room info received")
		}),
		src.On(transport.EventRoomReset, func(json.RawMessage) {
			w.ResetRoom()
			log.Info().Msg("room reset by server")
		}),
	}
	w.SetConnected(src.Connected())

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, off := range offs {
				off()
			}
		})
	}
}
