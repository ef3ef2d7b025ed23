/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import "encoding/json"

// Message types, shared by clients and the server.
const (
	TypeCreateRoom      = "create-room"
	TypeJoinRoom        = "join-room"
	TypeControllerInput = "controller-input"
	TypeStartGame       = "start-game"
	TypeGameState       = "game-state"
	TypeEndGame         = "end-game"

	TypePlayerJoined = "player-joined"
	TypePlayerLeft   = "player-left"
	TypeGameStarted  = "game-started"
	TypeGameEnded    = "game-ended"
	TypeRoomClosed   = "room-closed"
)

// Message is an outbound event addressed to a single connection.
type Message struct {
	Type string
	Data any
}

// Sender delivers messages to connections by id. Delivery is fire-and-forget.
type Sender interface {
	Send(connID string, msg Message)
}

// JoinRequest is the payload of join-room.
type JoinRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// JoinReply is the reply to join-room.
type JoinReply struct {
	Success    bool    `json:"success"`
	Player     *Player `json:"player,omitempty"`
	ActiveGame string  `json:"activeGame,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// CreateRoomReply is the reply to create-room.
type CreateRoomReply struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Input is a full snapshot of one controller's state. It is never a delta.
type Input struct {
	JoystickX float64 `json:"joystickX"`
	JoystickY float64 `json:"joystickY"`
	Up        bool    `json:"up"`
	Down      bool    `json:"down"`
	Left      bool    `json:"left"`
	Right     bool    `json:"right"`
	ButtonA   bool    `json:"buttonA"`
	ButtonB   bool    `json:"buttonB"`
}

// TaggedInput is an Input as delivered to the screen.
type TaggedInput struct {
	PlayerID     string `json:"playerId"`
	PlayerNumber int    `json:"playerNumber"`
	Input
}

// PlayerLeft is the payload of player-left.
type PlayerLeft struct {
	PlayerID     string `json:"playerId"`
	PlayerNumber int    `json:"playerNumber"`
}

// GameState is forwarded to players verbatim.
type GameState = json.RawMessage
