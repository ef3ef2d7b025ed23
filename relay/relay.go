/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package relay maps ephemeral connections onto rooms of one screen and up
// to eight players, and routes input and lifecycle events between them.
//
// A Relay is a plain state machine. It performs no locking and must be
// driven from a single goroutine; every method runs to completion before
// the next event is handled.
package relay

import (
	"strings"
)

// Role is what a connection is within its room.
type Role int

const (
	RoleScreen Role = iota + 1
	RolePlayer
)

func (r Role) String() string {
	switch r {
	case RoleScreen:
		return "screen"
	case RolePlayer:
		return "player"
	default:
		return "unknown"
	}
}

// Binding records which room a connection belongs to and as what.
type Binding struct {
	RoomCode     string
	Role         Role
	PlayerNumber int
}

// Relay owns the room directory and the connection side table.
type Relay struct {
	dir   *Directory
	conns map[string]Binding
	out   Sender
	logf  func(format string, args ...any)
}

// New returns a relay over dir that delivers events through out.
// logf may be nil.
func New(dir *Directory, out Sender, logf func(format string, args ...any)) *Relay {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Relay{
		dir:   dir,
		conns: make(map[string]Binding),
		out:   out,
		logf:  logf,
	}
}

// Binding returns the current binding of connID.
func (r *Relay) Binding(connID string) (Binding, bool) {
	b, ok := r.conns[connID]
	return b, ok
}

// Room returns a snapshot of an open room.
func (r *Relay) Room(code string) (RoomInfo, bool) {
	room, ok := r.dir.Get(code)
	if !ok {
		return RoomInfo{}, false
	}
	return room.Info(), true
}

// Rooms reports how many rooms are open.
func (r *Relay) Rooms() int {
	return r.dir.Len()
}

// CreateRoom opens a room with connID as its screen. Any previous binding
// of connID is released first.
func (r *Relay) CreateRoom(connID string) CreateRoomReply {
	if r.dir.Len() >= codeSpace {
		return CreateRoomReply{Error: ErrorMessage(ErrRoomSpaceExhausted)}
	}

	r.release(connID)

	room, err := r.dir.Create(connID)
	if err != nil {
		return CreateRoomReply{Error: ErrorMessage(err)}
	}
	r.conns[connID] = Binding{RoomCode: room.Code, Role: RoleScreen}

	r.logf("ROOMS: Room %s created by %s", room.Code, connID)

	return CreateRoomReply{Success: true, RoomCode: room.Code}
}

// Join attaches connID to a room as a player. A player already in the room
// under the same name is rebound to connID instead of being duplicated, and
// that path is not subject to the capacity check. Failures leave all state
// untouched.
func (r *Relay) Join(connID string, req JoinRequest) JoinReply {
	room, ok := r.dir.Get(req.RoomCode)
	if !ok {
		return JoinReply{Error: ErrorMessage(ErrRoomNotFound)}
	}

	prev, bound := r.conns[connID]
	if bound && prev.Role == RoleScreen {
		return JoinReply{Error: ErrorMessage(ErrScreenCannotJoin)}
	}

	name := strings.TrimSpace(req.PlayerName)

	if name != "" {
		if existing := room.PlayerByName(name); existing != nil {
			return r.rebind(connID, room, existing)
		}
	}

	// A player renaming itself inside its own room gives up its slot first.
	if bound && prev.RoomCode == room.Code {
		r.release(connID)
	}

	if len(room.Players) >= MaxPlayers {
		return JoinReply{Error: ErrorMessage(ErrRoomFull)}
	}

	r.release(connID)

	player, err := room.AddPlayer(connID, name)
	if err != nil {
		return JoinReply{Error: ErrorMessage(err)}
	}
	r.conns[connID] = Binding{RoomCode: room.Code, Role: RolePlayer, PlayerNumber: player.Number}

	r.out.Send(room.Screen, Message{Type: TypePlayerJoined, Data: *player})

	r.logf("PLAYERS: %q joined room %s as player %d", player.Name, room.Code, player.Number)

	return JoinReply{Success: true, Player: copyPlayer(player), ActiveGame: room.ActiveGame}
}

// rebind moves an existing player onto connID. The previous connection
// loses its binding, so its later input or disconnect is ignored.
func (r *Relay) rebind(connID string, room *Room, p *Player) JoinReply {
	if p.ID != connID {
		r.release(connID)

		delete(r.conns, p.ID)
		r.logf("PLAYERS: %q rebound in room %s from %s to %s", p.Name, room.Code, p.ID, connID)
		p.ID = connID
	}
	r.conns[connID] = Binding{RoomCode: room.Code, Role: RolePlayer, PlayerNumber: p.Number}

	return JoinReply{Success: true, Player: copyPlayer(p), ActiveGame: room.ActiveGame}
}

func copyPlayer(p *Player) *Player {
	c := *p
	return &c
}

// Input forwards a snapshot from a player to its room's screen. Input from
// unbound connections or from screens is dropped.
func (r *Relay) Input(connID string, in Input) {
	b, ok := r.conns[connID]
	if !ok || b.Role != RolePlayer {
		return
	}
	room, ok := r.dir.Get(b.RoomCode)
	if !ok {
		return
	}

	r.out.Send(room.Screen, Message{
		Type: TypeControllerInput,
		Data: TaggedInput{
			PlayerID:     connID,
			PlayerNumber: b.PlayerNumber,
			Input:        in,
		},
	})
}

// screenRoom returns the room connID is the screen of.
func (r *Relay) screenRoom(connID string) (*Room, bool) {
	b, ok := r.conns[connID]
	if !ok || b.Role != RoleScreen {
		return nil, false
	}
	room, ok := r.dir.Get(b.RoomCode)
	if !ok || room.Screen != connID {
		return nil, false
	}
	return room, true
}

// StartGame sets the active game and tells the whole room.
func (r *Relay) StartGame(connID, gameID string) {
	if gameID == "" {
		return
	}
	room, ok := r.screenRoom(connID)
	if !ok {
		r.logf("GAMES: Ignored start of %q from non-screen %s", gameID, connID)
		return
	}
	if !room.SetActiveGame(connID, gameID) {
		return
	}

	r.broadcastToRoom(room, Message{Type: TypeGameStarted, Data: gameID})

	r.logf("GAMES: Game %q started in room %s", gameID, room.Code)
}

// GameState forwards an opaque state object from the screen to every player.
func (r *Relay) GameState(connID string, state GameState) {
	room, ok := r.screenRoom(connID)
	if !ok {
		return
	}

	r.broadcastToPlayers(room, Message{Type: TypeGameState, Data: state})
}

// EndGame clears the active game and tells the whole room.
func (r *Relay) EndGame(connID string) {
	room, ok := r.screenRoom(connID)
	if !ok {
		r.logf("GAMES: Ignored end of game from non-screen %s", connID)
		return
	}
	if !room.SetActiveGame(connID, "") {
		return
	}

	r.broadcastToRoom(room, Message{Type: TypeGameEnded})

	r.logf("GAMES: Game ended in room %s", room.Code)
}

// Disconnect handles the loss of connID. A screen takes its room down with
// it; a player just leaves. Unknown connections are ignored.
func (r *Relay) Disconnect(connID string) {
	r.release(connID)
}

// release drops whatever binding connID holds, with the same effects as a
// disconnect.
func (r *Relay) release(connID string) {
	b, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	room, ok := r.dir.Get(b.RoomCode)
	if !ok {
		return
	}

	switch b.Role {
	case RoleScreen:
		r.closeRoom(room)
	case RolePlayer:
		p, removed := room.RemovePlayer(connID)
		if !removed {
			return
		}
		r.out.Send(room.Screen, Message{
			Type: TypePlayerLeft,
			Data: PlayerLeft{PlayerID: p.ID, PlayerNumber: p.Number},
		})
		r.logf("PLAYERS: %q left room %s", p.Name, room.Code)
	}
}

func (r *Relay) closeRoom(room *Room) {
	r.broadcastToPlayers(room, Message{Type: TypeRoomClosed})

	for _, p := range room.Players {
		delete(r.conns, p.ID)
	}
	delete(r.conns, room.Screen)
	r.dir.Delete(room.Code)

	r.logf("ROOMS: Room %s closed", room.Code)
}

func (r *Relay) broadcastToPlayers(room *Room, msg Message) {
	for _, p := range room.Players {
		r.out.Send(p.ID, msg)
	}
}

func (r *Relay) broadcastToRoom(room *Room, msg Message) {
	r.out.Send(room.Screen, msg)
	r.broadcastToPlayers(room, msg)
}
