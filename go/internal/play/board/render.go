package board

import (
	"fmt"
	"time"

	"github.com/mcdev12/playtime/go/internal/play/countdown"
	"github.com/mcdev12/playtime/go/internal/play/state"
)

const (
	nftNotice = "You need an Tezos Playtime.club NFT to play."
	nftLink   = "https://opensea.com"
)

// Controls says which board actions are currently available.
type Controls struct {
	Join   bool
	Detail bool
}

// ControlsFor derives the enabled actions from the room state.
func ControlsFor(s state.RoomState) Controls {
	return Controls{
		Join:   !s.Loading && !s.Joined(),
		Detail: !s.Loading,
	}
}

// Lines renders the board for a state and a remaining countdown value.
func Lines(s state.RoomState, remain int, loc *time.Location) []string {
	var lines []string
	if !s.InRoom() {
		lines = append(lines, "Please join to game!")
	} else {
		lines = append(lines, "Room Number "+*s.RoomID)
		playtime := "Playtime"
		if s.StartTime != nil {
			playtime += " " + countdown.FormatBoardStart(s.StartTime.In(loc))
		}
		lines = append(lines, playtime)
		if remain >= 0 {
			lines = append(lines, "Remain Time: "+countdown.Format(remain))
		}
	}
	lines = append(lines, fmt.Sprintf("%s Buy Here: %s", nftNotice, nftLink))

	controls := ControlsFor(s)
	lines = append(lines, fmt.Sprintf("[%s] [%s]", button("Detail", controls.Detail), button("Join", controls.Join)))
	return lines
}

// DetailLines renders the room information view.
func DetailLines(s state.RoomState, loc *time.Location) []string {
	lines := []string{
		"Room Information",
		"Player ID " + deref(s.PlayerID),
		"Room number " + deref(s.RoomID),
		fmt.Sprintf("Number of players joined in this room %d", s.PlayerCount),
	}
	if s.StartTime != nil {
		lines = append(lines, "Start Time "+countdown.FormatDetailStart(s.StartTime.In(loc)))
	}
	return lines
}

func button(label string, enabled bool) string {
	if enabled {
		return label
	}
	return label + " (disabled)"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
