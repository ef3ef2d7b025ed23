/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"fmt"
	"time"
)

// MaxPlayers is the room capacity.
const MaxPlayers = 8

// Palette holds display colors, cycled by player number.
var Palette = []string{
	"#FF6B6B", // red
	"#4ECDC4", // teal
	"#FFE66D", // yellow
	"#95E1D3", // mint
	"#F38181", // coral
	"#AA96DA", // purple
	"#FCBAD3", // pink
	"#A8D8EA", // light blue
}

// ColorFor returns the palette color for a 1-based player number.
func ColorFor(number int) string {
	if number < 1 {
		return Palette[0]
	}
	return Palette[(number-1)%len(Palette)]
}

// Player is a controller that has joined a room. ID is the current
// connection id and changes when the player is rebound.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
	Color  string `json:"color"`
}

// Room is one game session owned by a single screen connection.
type Room struct {
	Code       string
	Screen     string
	Players    []*Player // join order
	ActiveGame string    // empty while at the lobby
	CreatedAt  time.Time
}

func newRoom(code, screen string) *Room {
	return &Room{
		Code:      code,
		Screen:    screen,
		Players:   make([]*Player, 0, MaxPlayers),
		CreatedAt: time.Now(),
	}
}

// AddPlayer appends a new player bound to connID. Names are expected to be
// trimmed already; a blank name becomes "Player N", suffixed when another
// player already goes by that name.
func (r *Room) AddPlayer(connID, name string) (*Player, error) {
	if len(r.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}

	number := len(r.Players) + 1
	if name == "" {
		name = r.defaultName(number)
	}

	p := &Player{
		ID:     connID,
		Name:   name,
		Number: number,
		Color:  ColorFor(number),
	}
	r.Players = append(r.Players, p)

	return p, nil
}

func (r *Room) defaultName(number int) string {
	base := fmt.Sprintf("Player %d", number)

	name := base
	for i := 2; r.PlayerByName(name) != nil; i++ {
		name = fmt.Sprintf("%s (%d)", base, i)
	}
	return name
}

// RemovePlayer removes the player currently bound to connID, if any.
func (r *Room) RemovePlayer(connID string) (*Player, bool) {
	for i, p := range r.Players {
		if p.ID != connID {
			continue
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		return p, true
	}
	return nil, false
}

// PlayerByName returns the first player with exactly this name.
func (r *Room) PlayerByName(name string) *Player {
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PlayerByConn returns the player bound to connID.
func (r *Room) PlayerByConn(connID string) *Player {
	for _, p := range r.Players {
		if p.ID == connID {
			return p
		}
	}
	return nil
}

// SetActiveGame changes the running game on behalf of connID. Requests from
// anything but the room's screen are ignored and report false.
func (r *Room) SetActiveGame(connID, gameID string) bool {
	if connID != r.Screen {
		return false
	}
	r.ActiveGame = gameID
	return true
}

// RoomInfo is a copy of a room's public state.
type RoomInfo struct {
	Code       string    `json:"roomCode"`
	Players    []Player  `json:"players"`
	ActiveGame string    `json:"activeGame,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Info returns a snapshot that shares no memory with the room.
func (r *Room) Info() RoomInfo {
	players := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, *p)
	}
	return RoomInfo{
		Code:       r.Code,
		Players:    players,
		ActiveGame: r.ActiveGame,
		CreatedAt:  r.CreatedAt,
	}
}
