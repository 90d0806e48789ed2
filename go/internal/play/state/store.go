package state

import (
	"sync"
	"time"
)

// RoomState is the client-side mirror of the server-owned room.
type RoomState struct {
	PlayerID    *string    `json:"playerId"`
	RoomID      *string    `json:"roomId"`
	StartTime   *time.Time `json:"startTime"`
	PlayerCount int        `json:"players"`
	Connected   bool       `json:"connected"`
	Loading     bool       `json:"loading"`
}

// Joined reports whether the server accepted a JOIN for this session.
func (s RoomState) Joined() bool {
	return s.PlayerID != nil && *s.PlayerID != ""
}

// InRoom reports whether a room has been assigned.
func (s RoomState) InRoom() bool {
	return s.RoomID != nil && *s.RoomID != ""
}

// Reader is the read-only view used by presenters.
type Reader interface {
	Snapshot() RoomState
	Subscribe(fn func(RoomState)) func()
}

// LoadingWriter is the only write capability the join handshake gets.
type LoadingWriter interface {
	SetLoading(loading bool)
}

// ServerWriter applies what the server pushes.
type ServerWriter interface {
	SetConnected(connected bool)
	ApplyRoomInfo(info RoomInfo)
	ResetRoom()
}

// Store holds RoomState and fans out every change to subscribers.
type Store struct {
	mu     sync.RWMutex
	state  RoomState
	subs   map[uint64]func(RoomState)
	nextID uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{subs: make(map[uint64]func(RoomState))}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() RoomState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe calls fn with the new state after every change. The returned
// function unsubscribes and may be called more than once.
func (s *Store) Subscribe(fn func(RoomState)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *RoomState) bool {
		if st.Loading == loading {
			return false
		}
		st.Loading = loading
		return true
	})
}

func (s *Store) SetConnected(connected bool) {
	s.update(func(st *RoomState) bool {
		if st.Connected == connected {
			return false
		}
		st.Connected = connected
		return true
	})
}

func (s *Store) ApplyRoomInfo(info RoomInfo) {
	s.update(func(st *RoomState) bool {
		if info.has("playerId") {
			st.PlayerID = idPtr(info.PlayerID)
		}
		if info.has("roomId") {
			st.RoomID = idPtr(info.RoomID)
		}
		if info.has("startTime") {
			if info.StartTime == nil {
				st.StartTime = nil
			} else {
				t := info.StartTime.Time
				st.StartTime = &t
			}
		}
		if info.has("players") {
			st.PlayerCount = 0
			if info.Players != nil {
				st.PlayerCount = *info.Players
			}
		}
		return true
	})
}

func (s *Store) ResetRoom() {
	s.update(func(st *RoomState) bool {
		st.PlayerID = nil
		st.RoomID = nil
		st.StartTime = nil
		st.PlayerCount = 0
		return true
	})
}

// update mutates the state under lock and notifies subscribers outside it.
func (s *Store) update(mutate func(*RoomState) bool) {
	s.mu.Lock()
	if !mutate(&s.state) {
		s.mu.Unlock()
		return
	}
	snapshot := s.state
	subs := make([]func(RoomState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func idPtr(id *ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
